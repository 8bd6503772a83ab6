package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

// DirectoryRepo serves the handler and waste-collector listings.  Only
// verified profiles are ever returned by the public list methods.
type DirectoryRepo struct {
	db *sql.DB
}

func NewDirectoryRepo(db *sql.DB) *DirectoryRepo { return &DirectoryRepo{db: db} }

const handlerColumns = `id, user_id, name, business_name, email, phone, region, activity_type, rating,
	certification_status, valid_until, services_offered, price_range, capacity, is_verified,
	created_at, updated_at`

func scanHandler(row rowScanner) (*model.Handler, error) {
	var (
		h        model.Handler
		services []byte
	)
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.BusinessName, &h.Email, &h.Phone, &h.Region,
		&h.ActivityType, &h.Rating, &h.CertificationStatus, &h.ValidUntil, &services, &h.PriceRange,
		&h.Capacity, &h.IsVerified, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if h.ServicesOffered, err = decodeList(services); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHandlers runs the public handler search.  Region matches as a
// case-insensitive substring; results are ordered by rating.
func (r *DirectoryRepo) ListHandlers(ctx context.Context, f model.HandlerFilter, now time.Time) ([]model.Handler, error) {
	where := []string{"is_verified=1"}
	args := []any{}
	if f.MinRating != nil {
		where = append(where, "rating >= ?")
		args = append(args, *f.MinRating)
	}
	if f.ActivityType != "" {
		where = append(where, "activity_type = ?")
		args = append(args, f.ActivityType)
	}
	if f.Region != "" {
		where = append(where, "LOWER(region) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(f.Region))+"%")
	}
	if f.ValidOnly {
		where = append(where, "valid_until > ?")
		args = append(args, now.UTC())
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+handlerColumns+" FROM handlers WHERE "+strings.Join(where, " AND ")+
			" ORDER BY rating DESC, id ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Handler{}
	for rows.Next() {
		h, err := scanHandler(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// UpsertHandler creates or refreshes the listing owned by h.UserID.
// Rating and free-form attributes of an existing listing are preserved.
func (r *DirectoryRepo) UpsertHandler(ctx context.Context, h *model.Handler) error {
	services, err := encodeList(h.ServicesOffered)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO handlers (user_id, name, business_name, email, phone, region, activity_type,
			rating, certification_status, valid_until, services_offered, price_range, capacity, is_verified)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE business_name=VALUES(business_name), activity_type=VALUES(activity_type),
			certification_status=VALUES(certification_status), valid_until=VALUES(valid_until),
			is_verified=VALUES(is_verified)`,
		h.UserID, h.Name, h.BusinessName, h.Email, h.Phone, h.Region, h.ActivityType, h.Rating,
		h.CertificationStatus, h.ValidUntil, services, h.PriceRange, h.Capacity, h.IsVerified)
	return err
}

// SetHandlerStatus updates the verification flag and certification status
// of a user's listing.  A missing listing yields ErrNotFound.
func (r *DirectoryRepo) SetHandlerStatus(ctx context.Context, userID uint64, verified bool, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE handlers SET is_verified=?, certification_status=? WHERE user_id=?",
		verified, status, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

const collectorColumns = `id, user_id, name, email, phone, region, rating, specialization, availability,
	price_range, experience, services_offered, vehicle_types, operating_hours, is_verified,
	created_at, updated_at`

func scanCollector(row rowScanner) (*model.WasteCollector, error) {
	var (
		wc               model.WasteCollector
		services, trucks []byte
	)
	err := row.Scan(&wc.ID, &wc.UserID, &wc.Name, &wc.Email, &wc.Phone, &wc.Region, &wc.Rating,
		&wc.Specialization, &wc.Availability, &wc.PriceRange, &wc.Experience, &services, &trucks,
		&wc.OperatingHours, &wc.IsVerified, &wc.CreatedAt, &wc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if wc.ServicesOffered, err = decodeList(services); err != nil {
		return nil, err
	}
	if wc.VehicleTypes, err = decodeList(trucks); err != nil {
		return nil, err
	}
	return &wc, nil
}

// ListVerifiedCollectors returns the public collector directory.
func (r *DirectoryRepo) ListVerifiedCollectors(ctx context.Context) ([]model.WasteCollector, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+collectorColumns+" FROM waste_collectors WHERE is_verified=1 ORDER BY rating DESC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.WasteCollector{}
	for rows.Next() {
		wc, err := scanCollector(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *wc)
	}
	return out, rows.Err()
}

func (r *DirectoryRepo) GetCollector(ctx context.Context, id uint64) (*model.WasteCollector, error) {
	return scanCollector(r.db.QueryRowContext(ctx,
		"SELECT "+collectorColumns+" FROM waste_collectors WHERE id=? LIMIT 1", id))
}

func (r *DirectoryRepo) GetCollectorByUser(ctx context.Context, userID uint64) (*model.WasteCollector, error) {
	return scanCollector(r.db.QueryRowContext(ctx,
		"SELECT "+collectorColumns+" FROM waste_collectors WHERE user_id=? LIMIT 1", userID))
}

// UpsertCollector creates the profile owned by wc.UserID or updates its
// editable attributes.  Rating and verification are never changed here.
func (r *DirectoryRepo) UpsertCollector(ctx context.Context, wc *model.WasteCollector) (*model.WasteCollector, error) {
	services, err := encodeList(wc.ServicesOffered)
	if err != nil {
		return nil, err
	}
	trucks, err := encodeList(wc.VehicleTypes)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO waste_collectors (user_id, name, email, phone, region, specialization, availability,
			price_range, experience, services_offered, vehicle_types, operating_hours, is_verified)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,0)
		ON DUPLICATE KEY UPDATE name=VALUES(name), phone=VALUES(phone), region=VALUES(region),
			specialization=VALUES(specialization), availability=VALUES(availability),
			price_range=VALUES(price_range), experience=VALUES(experience),
			services_offered=VALUES(services_offered), vehicle_types=VALUES(vehicle_types),
			operating_hours=VALUES(operating_hours)`,
		wc.UserID, wc.Name, wc.Email, wc.Phone, wc.Region, wc.Specialization, wc.Availability,
		wc.PriceRange, wc.Experience, services, trucks, wc.OperatingHours)
	if err != nil {
		return nil, err
	}
	return r.GetCollectorByUser(ctx, wc.UserID)
}

// SetCollectorVerified flips the public visibility of a collector profile.
func (r *DirectoryRepo) SetCollectorVerified(ctx context.Context, id uint64, verified bool) (*model.WasteCollector, error) {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE waste_collectors SET is_verified=? WHERE id=?", verified, id); err != nil {
		return nil, err
	}
	return r.GetCollector(ctx, id)
}

// CreateFeedback inserts a rating and refreshes the collector's average
// rating in the same transaction.
func (r *DirectoryRepo) CreateFeedback(ctx context.Context, f *model.Feedback) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO feedbacks (collector_id, recycler_id, recycler_name, rating, comment, project_type,
			is_verified, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		f.CollectorID, f.RecyclerID, f.RecyclerName, f.Rating, f.Comment, f.ProjectType, f.IsVerified, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE waste_collectors SET rating=(SELECT ROUND(AVG(rating), 2) FROM feedbacks WHERE collector_id=?)
		WHERE id=?`, f.CollectorID, f.CollectorID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	f.ID = uint64(id)
	f.CreatedAt, f.UpdatedAt = now, now
	return nil
}

// ListFeedback returns a collector's feedback newest first.
func (r *DirectoryRepo) ListFeedback(ctx context.Context, collectorID uint64) ([]model.Feedback, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, collector_id, recycler_id, recycler_name, rating, comment, project_type, is_verified,
			response, created_at, updated_at
		FROM feedbacks WHERE collector_id=? ORDER BY created_at DESC, id DESC`, collectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Feedback{}
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.CollectorID, &f.RecyclerID, &f.RecyclerName, &f.Rating, &f.Comment,
			&f.ProjectType, &f.IsVerified, &f.Response, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
