package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification.  New notifications are always unread.  A
// second insert with the same idempotency key leaves the table unchanged and
// reports the existing row's id.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (idempotency_key, user_id, title, message, type, is_read, action_url, created_at, updated_at)
		VALUES (?,?,?,?,?,0,?,?,?)
		ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id)`,
		nullIfEmpty(n.IdempotencyKey), n.UserID, n.Title, n.Message, n.Type, n.ActionURL, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	n.IsRead = false
	n.CreatedAt, n.UpdatedAt = now, now
	return nil
}

// ListByUser returns a user's notifications newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, message, type, is_read, action_url, created_at, updated_at
		FROM notifications WHERE user_id=? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.ActionURL,
			&n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead sets the read flag on a notification owned by userID.  Marking
// an already-read notification succeeds; a notification that does not
// exist or belongs to someone else yields ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read=1 WHERE id=? AND user_id=? AND is_read=0", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE id=? AND user_id=?", id, userID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return nil
}
