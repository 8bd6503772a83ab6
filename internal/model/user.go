package model

import "time"

// User represents an account as stored in the `users` table.  Secrets and
// one-time tokens are never serialised; handlers return User.Public().
//
// Fields:
//
//	ID                       – primary key identifier.
//	Email                    – unique email address, compared as stored.
//	PasswordHash             – bcrypt hash of the password.
//	Role                     – one of the closed Role set.
//	IsEmailVerified          – set once the verification token is redeemed.
//	EmailVerificationToken   – single-use token, cleared on redemption.
//	EmailVerificationExpires – deadline for redeeming the verification token.
//	PasswordResetToken       – single-use token, cleared on redemption.
//	PasswordResetExpires     – deadline for redeeming the reset token.
//	IsActive                 – admins can deactivate accounts.
type User struct {
	ID                       uint64
	Name                     string
	Email                    string
	PasswordHash             string
	Phone                    string
	Region                   string
	Role                     Role
	IsEmailVerified          bool
	EmailVerificationToken   *string
	EmailVerificationExpires *time.Time
	PasswordResetToken       *string
	PasswordResetExpires     *time.Time
	IsActive                 bool
	LastLoginAt              *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// PublicUser is the client-facing projection of a User.
type PublicUser struct {
	ID              uint64     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	Region          string     `json:"region,omitempty"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	IsActive        bool       `json:"isActive"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		Region:          u.Region,
		IsEmailVerified: u.IsEmailVerified,
		IsActive:        u.IsActive,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
	}
}

// UserFilter narrows the admin user listing.  Nil fields are not applied.
type UserFilter struct {
	Role     *Role
	IsActive *bool
}

// UserUpdate is the admin override on a user record.  Only these two fields
// may be changed through user management.
type UserUpdate struct {
	IsActive *bool `json:"isActive,omitempty"`
	Role     *Role `json:"role,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool { return u.IsActive == nil && u.Role == nil }
