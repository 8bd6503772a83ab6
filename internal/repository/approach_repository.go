package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

// ApproachRepo stores contact requests between recyclers and collectors.
type ApproachRepo struct {
	db *sql.DB
}

func NewApproachRepo(db *sql.DB) *ApproachRepo { return &ApproachRepo{db: db} }

const approachColumns = `id, recycler_id, collector_id, collector_user_id, message, status, waste_type,
	quantity, urgency, preferred_date, response, created_at, updated_at`

func scanApproach(row rowScanner) (*model.ApproachRequest, error) {
	var a model.ApproachRequest
	err := row.Scan(&a.ID, &a.RecyclerID, &a.CollectorID, &a.CollectorUserID, &a.Message, &a.Status,
		&a.WasteType, &a.Quantity, &a.Urgency, &a.PreferredDate, &a.Response, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *ApproachRepo) Create(ctx context.Context, a *model.ApproachRequest) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO approach_requests (recycler_id, collector_id, collector_user_id, message, status,
			waste_type, quantity, urgency, preferred_date, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.RecyclerID, a.CollectorID, a.CollectorUserID, a.Message, a.Status, a.WasteType, a.Quantity,
		a.Urgency, a.PreferredDate, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

func (r *ApproachRepo) GetByID(ctx context.Context, id uint64) (*model.ApproachRequest, error) {
	return scanApproach(r.db.QueryRowContext(ctx,
		"SELECT "+approachColumns+" FROM approach_requests WHERE id=? LIMIT 1", id))
}

// ListBySender returns the requests a recycler has sent.
func (r *ApproachRepo) ListBySender(ctx context.Context, recyclerID uint64) ([]model.ApproachRequest, error) {
	return r.list(ctx, "recycler_id=?", recyclerID)
}

// ListByRecipient returns the requests addressed to a collector's owning user.
func (r *ApproachRepo) ListByRecipient(ctx context.Context, collectorUserID uint64) ([]model.ApproachRequest, error) {
	return r.list(ctx, "collector_user_id=?", collectorUserID)
}

func (r *ApproachRepo) list(ctx context.Context, cond string, arg any) ([]model.ApproachRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+approachColumns+" FROM approach_requests WHERE "+cond+" ORDER BY created_at DESC, id DESC", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ApproachRequest{}
	for rows.Next() {
		a, err := scanApproach(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdateStatus moves a request from one status to another.  The update is
// conditional on the current status so racing responses cannot both apply.
func (r *ApproachRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.ApproachStatus, response *string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE approach_requests SET status=?, response=COALESCE(?, response) WHERE id=? AND status=?",
		to, response, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
