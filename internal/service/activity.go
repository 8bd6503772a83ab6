package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/logger"
	"github.com/iliyamo/ecowaste-cert/internal/metrics"
	"github.com/iliyamo/ecowaste-cert/internal/model"
)

// RequestMeta identifies the client behind an audited action.
type RequestMeta struct {
	IP        string
	UserAgent string
}

const (
	sideEffectAttempts = 2
	sideEffectTimeout  = 5 * time.Second
)

// sideEffect runs fn after a primary write has already been committed.  It
// is retried once; a final failure is logged and counted but never
// returned, because the primary write is the durability boundary.  The
// caller's cancellation is detached so a client hanging up mid-request does
// not drop the audit entry.  An attempt can fail after the store committed,
// so fn must be idempotent; the writers below key each effect once, outside
// the retry loop.
func sideEffect(ctx context.Context, kind string, fn func(context.Context) error) {
	base := context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < sideEffectAttempts; attempt++ {
		actx, cancel := context.WithTimeout(base, sideEffectTimeout)
		err = fn(actx)
		cancel()
		if err == nil {
			return
		}
	}
	logger.WithContext(ctx).Warn("side effect failed",
		zap.String("kind", kind), zap.Int("attempts", sideEffectAttempts), zap.Error(err))
	metrics.SideEffectFailed(kind)
}

// ActivityLogger appends audit records.
type ActivityLogger struct {
	store AuditStore
	now   func() time.Time
}

func NewActivityLogger(store AuditStore) *ActivityLogger {
	return &ActivityLogger{store: store, now: time.Now}
}

// Record writes one entry and reports the store error.
func (a *ActivityLogger) Record(ctx context.Context, userID uint64, action string, details map[string]any, meta RequestMeta) error {
	return a.insert(ctx, "", userID, action, details, meta)
}

// Log is Record as a best-effort side effect.  Retries reuse one key, so an
// entry is stored at most once.
func (a *ActivityLogger) Log(ctx context.Context, userID uint64, action string, details map[string]any, meta RequestMeta) {
	key := uuid.NewString()
	sideEffect(ctx, "audit", func(ctx context.Context) error {
		return a.insert(ctx, key, userID, action, details, meta)
	})
}

func (a *ActivityLogger) insert(ctx context.Context, key string, userID uint64, action string, details map[string]any, meta RequestMeta) error {
	return a.store.Insert(ctx, &model.AuditLog{
		UserID:         userID,
		Action:         action,
		Details:        details,
		IPAddress:      orUnknown(meta.IP),
		UserAgent:      orUnknown(meta.UserAgent),
		IdempotencyKey: key,
		Timestamp:      a.now().UTC(),
	})
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
