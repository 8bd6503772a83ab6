package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/ecowaste-cert/internal/apperr"
	"github.com/iliyamo/ecowaste-cert/internal/mail"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
)

// NotificationService is the read/mark-read path of in-app notifications
// and the best-effort writer used by the other services.
type NotificationService struct {
	store  NotificationStore
	mailer mail.Mailer
}

func NewNotificationService(store NotificationStore, mailer mail.Mailer) *NotificationService {
	if mailer == nil {
		mailer = mail.LogMailer{}
	}
	return &NotificationService{store: store, mailer: mailer}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, user *model.User) ([]model.Notification, error) {
	out, err := s.store.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, apperr.Dependency("list notifications", err)
	}
	return out, nil
}

// MarkRead is idempotent.  Notifications owned by other users are reported
// as not found.
func (s *NotificationService) MarkRead(ctx context.Context, user *model.User, id uint64) error {
	if id == 0 {
		return apperr.Validation("Notification ID is required")
	}
	if err := s.store.MarkRead(ctx, id, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Notification not found")
		}
		return apperr.Dependency("mark notification read", err)
	}
	return nil
}

// Create writes a notification and reports the store error.
func (s *NotificationService) Create(ctx context.Context, n *model.Notification) error {
	return s.store.Create(ctx, n)
}

// Push writes a notification as a best-effort side effect.  The
// notification is keyed before the first attempt so a retry after a
// committed-but-failed insert does not store it twice.
func (s *NotificationService) Push(ctx context.Context, n model.Notification) {
	if n.IdempotencyKey == "" {
		n.IdempotencyKey = uuid.NewString()
	}
	sideEffect(ctx, "notification", func(ctx context.Context) error {
		cp := n
		return s.store.Create(ctx, &cp)
	})
}

// Email sends msg as a best-effort side effect.
func (s *NotificationService) Email(ctx context.Context, msg mail.Message) {
	sideEffect(ctx, "email", func(ctx context.Context) error {
		return s.mailer.Send(ctx, msg)
	})
}

func strPtr(s string) *string { return &s }
