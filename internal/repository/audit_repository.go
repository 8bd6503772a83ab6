package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

// AuditRepo is the append-only audit trail.  There is no update or delete.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Insert appends an entry.  Entries sharing an idempotency key are stored once.
func (r *AuditRepo) Insert(ctx context.Context, l *model.AuditLog) error {
	details := l.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (idempotency_key, user_id, action, details, ip_address, user_agent, timestamp)
		VALUES (?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id)`,
		nullIfEmpty(l.IdempotencyKey), l.UserID, l.Action, string(raw), l.IPAddress, l.UserAgent, l.Timestamp.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

// Recent returns the latest entries, newest first.
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]model.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, details, ip_address, user_agent, timestamp
		FROM audit_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AuditLog{}
	for rows.Next() {
		var (
			l   model.AuditLog
			raw []byte
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &raw, &l.IPAddress, &l.UserAgent, &l.Timestamp); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &l.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DashboardStats gathers the admin headline counters in one round trip.
func (r *AuditRepo) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var s model.DashboardStats
	err := r.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM users WHERE is_active=1),
		(SELECT COUNT(*) FROM users WHERE role='recycler' AND is_active=1),
		(SELECT COUNT(*) FROM users WHERE role='wastecollector' AND is_active=1),
		(SELECT COUNT(*) FROM certifications),
		(SELECT COUNT(*) FROM certifications WHERE status='Certified'),
		(SELECT COUNT(*) FROM certifications WHERE status='Pending'),
		(SELECT COUNT(*) FROM handlers WHERE is_verified=1)`).Scan(
		&s.TotalUsers, &s.TotalRecyclers, &s.TotalCollectors, &s.TotalCertifications,
		&s.ActiveCertifications, &s.PendingCertifications, &s.TotalHandlers)
	return s, err
}
