package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, email, password_hash, phone, region, role, is_email_verified,
	email_verification_token, email_verification_expires, password_reset_token,
	password_reset_expires, is_active, last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Region, &u.Role,
		&u.IsEmailVerified, &u.EmailVerificationToken, &u.EmailVerificationExpires,
		&u.PasswordResetToken, &u.PasswordResetExpires, &u.IsActive, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts the user and fills in its generated ID and timestamps.
// Email is stored trimmed but otherwise as given; uniqueness is exact.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.TrimSpace(u.Email)
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, phone, region, role, is_email_verified,
			email_verification_token, email_verification_expires, is_active, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.Name, u.Email, u.PasswordHash, u.Phone, u.Region, u.Role, u.IsEmailVerified,
		u.EmailVerificationToken, u.EmailVerificationExpires, u.IsActive, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByEmail fetches a user by exact email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", strings.TrimSpace(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// SetPasswordResetToken stores the hash of a fresh reset token, replacing
// any outstanding one.
func (r *UserRepo) SetPasswordResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_token=?, password_reset_expires=? WHERE id=?",
		tokenHash, expires.UTC(), id)
	return err
}

// RedeemVerificationToken marks the owner of an unexpired verification
// token as verified and clears the token.  The clearing update is
// conditional on the token still being present, so two concurrent
// redemptions cannot both succeed.
func (r *UserRepo) RedeemVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email_verification_token=?
			AND (email_verification_expires IS NULL OR email_verification_expires > ?) LIMIT 1`,
		tokenHash, now.UTC()).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_email_verified=1, email_verification_token=NULL,
			email_verification_expires=NULL WHERE id=? AND email_verification_token=?`,
		id, tokenHash)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// RedeemPasswordResetToken swaps in the new password hash for the owner of
// an unexpired reset token and clears the token.  Returns the user id.
func (r *UserRepo) RedeemPasswordResetToken(ctx context.Context, tokenHash, newHash string, now time.Time) (uint64, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE password_reset_token=? AND password_reset_expires > ? LIMIT 1",
		tokenHash, now.UTC()).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, password_reset_token=NULL, password_reset_expires=NULL
		WHERE id=? AND password_reset_token=?`,
		newHash, id, tokenHash)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ErrNotFound
	}
	return id, nil
}

// TouchLastLogin stamps last_login_at.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login_at=? WHERE id=?", at.UTC(), id)
	return err
}

// List returns one page of users matching the filter, newest first, plus
// the total number of matches.
func (r *UserRepo) List(ctx context.Context, f model.UserFilter, limit, offset int) ([]model.User, int, error) {
	where := []string{}
	args := []any{}
	if f.Role != nil {
		where = append(where, "role=?")
		args = append(args, *f.Role)
	}
	if f.IsActive != nil {
		where = append(where, "is_active=?")
		args = append(args, *f.IsActive)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+cond+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update applies an admin override and returns the updated record.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd model.UserUpdate) (*model.User, error) {
	set := []string{}
	args := []any{}
	if upd.IsActive != nil {
		set = append(set, "is_active=?")
		args = append(args, *upd.IsActive)
	}
	if upd.Role != nil {
		set = append(set, "role=?")
		args = append(args, *upd.Role)
	}
	if len(set) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}
