package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var userCols = []string{"id", "name", "email", "password_hash", "phone", "region", "role",
	"is_email_verified", "email_verification_token", "email_verification_expires",
	"password_reset_token", "password_reset_expires", "is_active", "last_login_at",
	"created_at", "updated_at"}

func userRow(id uint64, email string, verified bool) *sqlmock.Rows {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return sqlmock.NewRows(userCols).AddRow(id, "Ada", email, "$2a$hash", "555", "North", "recycler",
		verified, nil, nil, nil, nil, true, nil, now, now)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.User{Email: "a@b.co", Role: model.RoleRecycler})
	require.ErrorIs(t, err, ErrEmailExists)
}

func TestUserCreateSetsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(42, 1))

	u := &model.User{Email: "  a@b.co ", Role: model.RoleRecycler, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, uint64(42), u.ID)
	assert.Equal(t, "a@b.co", u.Email)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestUserGetByEmailNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("nobody@x.io").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByEmail(context.Background(), "nobody@x.io")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemVerificationToken(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email_verification_token=?")).
		WithArgs("hash", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_email_verified=1")).
		WithArgs(uint64(7), "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(uint64(7)).
		WillReturnRows(userRow(7, "a@b.co", true))

	u, err := repo.RedeemVerificationToken(context.Background(), "hash", now)
	require.NoError(t, err)
	assert.True(t, u.IsEmailVerified)
	assert.Nil(t, u.EmailVerificationToken)
}

func TestRedeemVerificationTokenLostRace(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email_verification_token=?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_email_verified=1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.RedeemVerificationToken(context.Background(), "hash", time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemPasswordResetTokenUnknown(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE password_reset_token=?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.RedeemPasswordResetToken(context.Background(), "hash", "newhash", time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserListAppliesFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	role := model.RoleRecycler
	active := true

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role=? AND is_active=?")).
		WithArgs(role, active).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE role=? AND is_active=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")).
		WithArgs(role, active, 20, 0).
		WillReturnRows(userRow(1, "a@b.co", true))

	users, total, err := repo.List(context.Background(), model.UserFilter{Role: &role, IsActive: &active}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "a@b.co", users[0].Email)
}

func TestCertificationUpdateEvaluationConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCertificationRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE certifications SET status=?")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c := &model.Certification{ID: 3, Status: model.CertCertified, ComplianceStatus: model.ComplianceCompliant}
	err := repo.UpdateEvaluation(context.Background(), c, model.CertPending)
	require.ErrorIs(t, err, ErrConflict)
}

func TestListHandlersFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDirectoryRepo(db)
	min := 4.0
	now := time.Now()

	cols := []string{"id", "user_id", "name", "business_name", "email", "phone", "region", "activity_type",
		"rating", "certification_status", "valid_until", "services_offered", "price_range", "capacity",
		"is_verified", "created_at", "updated_at"}
	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE is_verified=1 AND rating >= ? AND activity_type = ? AND LOWER(region) LIKE ? AND valid_until > ?")).
		WithArgs(min, "Recycling", "%north\\_east%", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 9, "Ada", "Green Co", "a@b.co", "555", "North_East",
			"Recycling", "4.50", "Certified", now.Add(time.Hour), []byte(`["pickup","sorting"]`), "$$", "10t",
			true, now, now))

	hs, err := repo.ListHandlers(context.Background(), model.HandlerFilter{
		MinRating: &min, ActivityType: "Recycling", Region: "North_East", ValidOnly: true,
	}, now)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.InDelta(t, 4.5, hs[0].Rating, 0.001)
	assert.Equal(t, []string{"pickup", "sorting"}, hs[0].ServicesOffered)
}

func TestCreateFeedbackRecomputesRating(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDirectoryRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO feedbacks")).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE waste_collectors SET rating=")).
		WithArgs(uint64(2), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	f := &model.Feedback{CollectorID: 2, RecyclerID: 1, RecyclerName: "Ada", Rating: 5, Comment: "great"}
	require.NoError(t, repo.CreateFeedback(context.Background(), f))
	assert.Equal(t, uint64(5), f.ID)
}

func TestNotificationMarkRead(t *testing.T) {
	t.Run("unread", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewNotificationRepo(db)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read=1")).
			WithArgs(uint64(1), uint64(9)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.MarkRead(context.Background(), 1, 9))
	})
	t.Run("already read is a no-op", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewNotificationRepo(db)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read=1")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications")).
			WithArgs(uint64(1), uint64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		require.NoError(t, repo.MarkRead(context.Background(), 1, 9))
	})
	t.Run("missing or foreign", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewNotificationRepo(db)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read=1")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		require.ErrorIs(t, repo.MarkRead(context.Background(), 1, 9), ErrNotFound)
	})
}

func TestAuditInsertEncodesDetails(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs(nil, uint64(1), model.ActionLogin, `{"role":"admin"}`, "10.0.0.1", "curl", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))

	l := &model.AuditLog{UserID: 1, Action: model.ActionLogin, Details: map[string]any{"role": "admin"},
		IPAddress: "10.0.0.1", UserAgent: "curl", Timestamp: time.Now()}
	require.NoError(t, repo.Insert(context.Background(), l))
	assert.Equal(t, uint64(11), l.ID)
}

func TestNotificationCreateWithKeyReusesRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewNotificationRepo(db)

	// A duplicate key resolves to the existing id through LAST_INSERT_ID(id).
	for i := 0; i < 2; i++ {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications (idempotency_key,")).
			WithArgs("key-1", uint64(7), "Hello", "m", model.NotifyInfo, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(42, int64(1-i)))
	}

	for i := 0; i < 2; i++ {
		n := &model.Notification{UserID: 7, Title: "Hello", Message: "m", Type: model.NotifyInfo, IdempotencyKey: "key-1"}
		require.NoError(t, repo.Create(context.Background(), n))
		assert.Equal(t, uint64(42), n.ID)
	}
}

func TestAuditInsertPassesKey(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id)")).
		WithArgs("key-2", uint64(1), model.ActionLogin, `{}`, "unknown", "unknown", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(3, 1))

	l := &model.AuditLog{UserID: 1, Action: model.ActionLogin, IPAddress: "unknown", UserAgent: "unknown",
		IdempotencyKey: "key-2", Timestamp: time.Now()}
	require.NoError(t, repo.Insert(context.Background(), l))
	assert.Equal(t, uint64(3), l.ID)
}
