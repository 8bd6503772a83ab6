// Package service holds the business rules.  Services depend on the store
// interfaces below; the MySQL repositories satisfy them in production and
// in-memory fakes satisfy them in tests.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	SetPasswordResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error
	RedeemVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	RedeemPasswordResetToken(ctx context.Context, tokenHash, newHash string, now time.Time) (uint64, error)
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
	List(ctx context.Context, f model.UserFilter, limit, offset int) ([]model.User, int, error)
	Update(ctx context.Context, id uint64, upd model.UserUpdate) (*model.User, error)
}

type CertificationStore interface {
	Create(ctx context.Context, c *model.Certification) error
	GetByID(ctx context.Context, id uint64) (*model.Certification, error)
	ListByRecycler(ctx context.Context, email string) ([]model.Certification, error)
	ListAll(ctx context.Context, limit int) ([]model.Certification, error)
	UpdateEvaluation(ctx context.Context, c *model.Certification, from model.CertificationStatus) error
}

type DirectoryStore interface {
	ListHandlers(ctx context.Context, f model.HandlerFilter, now time.Time) ([]model.Handler, error)
	UpsertHandler(ctx context.Context, h *model.Handler) error
	SetHandlerStatus(ctx context.Context, userID uint64, verified bool, status string) error
	ListVerifiedCollectors(ctx context.Context) ([]model.WasteCollector, error)
	GetCollector(ctx context.Context, id uint64) (*model.WasteCollector, error)
	GetCollectorByUser(ctx context.Context, userID uint64) (*model.WasteCollector, error)
	UpsertCollector(ctx context.Context, wc *model.WasteCollector) (*model.WasteCollector, error)
	SetCollectorVerified(ctx context.Context, id uint64, verified bool) (*model.WasteCollector, error)
	CreateFeedback(ctx context.Context, f *model.Feedback) error
	ListFeedback(ctx context.Context, collectorID uint64) ([]model.Feedback, error)
}

type ApproachStore interface {
	Create(ctx context.Context, a *model.ApproachRequest) error
	GetByID(ctx context.Context, id uint64) (*model.ApproachRequest, error)
	ListBySender(ctx context.Context, recyclerID uint64) ([]model.ApproachRequest, error)
	ListByRecipient(ctx context.Context, collectorUserID uint64) ([]model.ApproachRequest, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.ApproachStatus, response *string) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uint64) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID uint64) error
}

type AuditStore interface {
	Insert(ctx context.Context, l *model.AuditLog) error
	Recent(ctx context.Context, limit int) ([]model.AuditLog, error)
	DashboardStats(ctx context.Context) (model.DashboardStats, error)
}

// DirectoryCache holds rendered public directory responses.
type DirectoryCache interface {
	Purge(ctx context.Context) error
}
