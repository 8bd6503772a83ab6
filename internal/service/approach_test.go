package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ecowaste-cert/internal/apperr"
	"github.com/iliyamo/ecowaste-cert/internal/model"
)

type approachFixture struct {
	*env
	svc       *ApproachService
	recycler  *model.User
	collector *model.User
	profile   *model.WasteCollector
}

func newApproachFixture(t *testing.T) *approachFixture {
	t.Helper()
	e := newEnv()
	f := &approachFixture{env: e, svc: NewApproachService(e.approach, e.dir, e.notify, e.activity)}
	f.recycler = verifiedUser(t, e, model.RoleRecycler, "r@x.io", "Abcdefg1")
	f.collector = verifiedUser(t, e, model.RoleWasteCollector, "c@x.io", "Abcdefg1")
	f.profile = e.dir.addCollector(model.WasteCollector{UserID: f.collector.ID, Name: "Haul Co", IsVerified: true})
	return f
}

func TestCreateApproachUnknownCollector(t *testing.T) {
	f := newApproachFixture(t)

	_, err := f.svc.Create(context.Background(), f.recycler, CreateApproachInput{CollectorID: 999, Message: "hi"}, RequestMeta{})
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Empty(t, f.notes.all())
	assert.Empty(t, f.approach.rows)
}

func TestCreateApproachNotifiesProfileOwner(t *testing.T) {
	f := newApproachFixture(t)
	waste := "plastic"

	req, err := f.svc.Create(context.Background(), f.recycler, CreateApproachInput{
		CollectorID: f.profile.ID,
		Message:     "Need a pickup",
		WasteType:   &waste,
	}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, model.ApproachPending, req.Status)
	assert.Equal(t, f.collector.ID, req.CollectorUserID)

	got := f.notes.all()
	require.Len(t, got, 1)
	assert.Equal(t, f.collector.ID, got[0].UserID)
	assert.Equal(t, "New Approach Request", got[0].Title)
	require.NotNil(t, got[0].ActionURL)
	assert.Equal(t, "/wastecollector-dashboard", *got[0].ActionURL)
}

func TestCreateApproachNotifiesOnceWhenInsertAckIsLost(t *testing.T) {
	f := newApproachFixture(t)
	f.notes.lostAcks = 1
	f.audit.lostAcks = 1

	_, err := f.svc.Create(context.Background(), f.recycler, CreateApproachInput{
		CollectorID: f.profile.ID,
		Message:     "Need a pickup",
	}, RequestMeta{})
	require.NoError(t, err)

	got := f.notes.all()
	require.Len(t, got, 1)
	assert.Equal(t, f.collector.ID, got[0].UserID)
	assert.NotEmpty(t, got[0].IdempotencyKey)
	assert.Equal(t, []string{model.ActionApproachCollector}, f.audit.actions())
}

func TestCreateApproachValidation(t *testing.T) {
	f := newApproachFixture(t)

	_, err := f.svc.Create(context.Background(), f.recycler, CreateApproachInput{CollectorID: f.profile.ID}, RequestMeta{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.Create(context.Background(), f.collector, CreateApproachInput{CollectorID: f.profile.ID, Message: "x"}, RequestMeta{})
	assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
}

func TestListApproachIsRoleScoped(t *testing.T) {
	f := newApproachFixture(t)
	ctx := context.Background()
	other := verifiedUser(t, f.env, model.RoleRecycler, "other@x.io", "Abcdefg1")
	admin := verifiedUser(t, f.env, model.RoleAdmin, "a@x.io", "Abcdefg1")

	_, err := f.svc.Create(ctx, f.recycler, CreateApproachInput{CollectorID: f.profile.ID, Message: "one"}, RequestMeta{})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, other, CreateApproachInput{CollectorID: f.profile.ID, Message: "two"}, RequestMeta{})
	require.NoError(t, err)

	sent, err := f.svc.List(ctx, f.recycler)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "one", sent[0].Message)

	received, err := f.svc.List(ctx, f.collector)
	require.NoError(t, err)
	assert.Len(t, received, 2)

	none, err := f.svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRespondLifecycle(t *testing.T) {
	f := newApproachFixture(t)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, f.recycler, CreateApproachInput{CollectorID: f.profile.ID, Message: "pickup"}, RequestMeta{})
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, f.collector, req.ID, RespondInput{Status: "completed"}, RequestMeta{})
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	resp := "See you Monday"
	got, err := f.svc.Respond(ctx, f.collector, req.ID, RespondInput{Status: "Accepted", Response: &resp}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, model.ApproachAccepted, got.Status)
	assert.Equal(t, resp, *got.Response)

	got, err = f.svc.Respond(ctx, f.collector, req.ID, RespondInput{Status: "completed"}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, model.ApproachCompleted, got.Status)

	toRecycler, err := f.notes.ListByUser(ctx, f.recycler.ID)
	require.NoError(t, err)
	require.Len(t, toRecycler, 2)
	assert.Equal(t, "Approach Request Accepted", toRecycler[0].Title)
	assert.Equal(t, "Approach Request Completed", toRecycler[1].Title)
}

func TestRespondByOtherCollectorIsNotFound(t *testing.T) {
	f := newApproachFixture(t)
	ctx := context.Background()
	req, err := f.svc.Create(ctx, f.recycler, CreateApproachInput{CollectorID: f.profile.ID, Message: "pickup"}, RequestMeta{})
	require.NoError(t, err)
	intruder := verifiedUser(t, f.env, model.RoleWasteCollector, "c2@x.io", "Abcdefg1")

	_, err = f.svc.Respond(ctx, intruder, req.ID, RespondInput{Status: "accepted"}, RequestMeta{})
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))

	stored, err := f.approach.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApproachPending, stored.Status)
}
