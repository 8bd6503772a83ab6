package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

// CertificationRepo persists certification applications.  Rows are never
// deleted; re-application inserts a new row.
type CertificationRepo struct {
	db *sql.DB
}

func NewCertificationRepo(db *sql.DB) *CertificationRepo { return &CertificationRepo{db: db} }

const certColumns = `id, recycler_email, recycler_name, business_name, activity_type, document_name,
	status, compliance_status, applied_at, certified_at, valid_until, last_evaluation_date,
	evaluator_id, evaluator_notes, created_at, updated_at`

func scanCertification(row rowScanner) (*model.Certification, error) {
	var c model.Certification
	err := row.Scan(&c.ID, &c.RecyclerEmail, &c.RecyclerName, &c.BusinessName, &c.ActivityType,
		&c.DocumentName, &c.Status, &c.ComplianceStatus, &c.AppliedAt, &c.CertifiedAt, &c.ValidUntil,
		&c.LastEvaluationDate, &c.EvaluatorID, &c.EvaluatorNotes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a new application and fills in its ID and timestamps.
func (r *CertificationRepo) Create(ctx context.Context, c *model.Certification) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO certifications (recycler_email, recycler_name, business_name, activity_type,
			document_name, status, compliance_status, applied_at, last_evaluation_date, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.RecyclerEmail, c.RecyclerName, c.BusinessName, c.ActivityType, c.DocumentName,
		c.Status, c.ComplianceStatus, c.AppliedAt.UTC(), c.LastEvaluationDate.UTC(), now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (r *CertificationRepo) GetByID(ctx context.Context, id uint64) (*model.Certification, error) {
	return scanCertification(r.db.QueryRowContext(ctx,
		"SELECT "+certColumns+" FROM certifications WHERE id=? LIMIT 1", id))
}

// ListByRecycler returns the applications filed under an email, newest first.
func (r *CertificationRepo) ListByRecycler(ctx context.Context, email string) ([]model.Certification, error) {
	return r.list(ctx, "SELECT "+certColumns+" FROM certifications WHERE recycler_email=? ORDER BY applied_at DESC, id DESC", email)
}

// ListAll returns every application newest first.  A positive limit caps
// the result.
func (r *CertificationRepo) ListAll(ctx context.Context, limit int) ([]model.Certification, error) {
	q := "SELECT " + certColumns + " FROM certifications ORDER BY applied_at DESC, id DESC"
	if limit > 0 {
		return r.list(ctx, q+" LIMIT ?", limit)
	}
	return r.list(ctx, q)
}

func (r *CertificationRepo) list(ctx context.Context, q string, args ...any) ([]model.Certification, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Certification{}
	for rows.Next() {
		c, err := scanCertification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateEvaluation writes the evaluated fields of c, but only while the
// stored status still equals from.  A concurrent evaluation that got there
// first yields ErrConflict.
func (r *CertificationRepo) UpdateEvaluation(ctx context.Context, c *model.Certification, from model.CertificationStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE certifications SET status=?, compliance_status=?, certified_at=?, valid_until=?,
			last_evaluation_date=?, evaluator_id=?, evaluator_notes=?
		WHERE id=? AND status=?`,
		c.Status, c.ComplianceStatus, c.CertifiedAt, c.ValidUntil, c.LastEvaluationDate.UTC(),
		c.EvaluatorID, c.EvaluatorNotes, c.ID, from)
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
