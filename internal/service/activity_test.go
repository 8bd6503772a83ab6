package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

func TestLogStoresOnceWhenInsertAckIsLost(t *testing.T) {
	e := newEnv()
	e.audit.lostAcks = 1

	e.activity.Log(context.Background(), 3, model.ActionLogin, nil, RequestMeta{IP: "192.0.2.1"})
	require.Len(t, e.audit.logs, 1)
	assert.NotEmpty(t, e.audit.logs[0].IdempotencyKey)
	assert.Equal(t, "192.0.2.1", e.audit.logs[0].IPAddress)
	assert.Equal(t, "unknown", e.audit.logs[0].UserAgent)
}

func TestRecordIsUnkeyed(t *testing.T) {
	e := newEnv()
	require.NoError(t, e.activity.Record(context.Background(), 3, model.ActionLogin, nil, RequestMeta{}))
	require.NoError(t, e.activity.Record(context.Background(), 3, model.ActionLogin, nil, RequestMeta{}))
	assert.Len(t, e.audit.logs, 2)
}

func TestLogGivesUpAfterRetries(t *testing.T) {
	e := newEnv()
	e.audit.fail = true

	e.activity.Log(context.Background(), 3, model.ActionLogin, nil, RequestMeta{})
	assert.Empty(t, e.audit.logs)
}
