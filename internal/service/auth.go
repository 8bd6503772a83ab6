package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/apperr"
	"github.com/iliyamo/ecowaste-cert/internal/logger"
	"github.com/iliyamo/ecowaste-cert/internal/mail"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
	"github.com/iliyamo/ecowaste-cert/internal/utils"
)

const (
	msgAllFieldsRequired = "All fields are required"
	msgInvalidEmail      = "Invalid email format"
	msgWeakPassword      = "Password must be at least 8 characters long and contain uppercase, lowercase, and number"
	msgInvalidCreds      = "Invalid credentials"
	msgVerifyFirst       = "Please verify your email before logging in. Check your inbox for the verification link."
	msgForgotPassword    = "If an account with that email exists, we've sent a password reset link."
)

// AuthConfig carries the tunables of AuthService.
type AuthConfig struct {
	BcryptCost      int
	BaseURL         string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// AuthService implements registration, login and the one-time-token flows.
// Only SHA-256 hashes of one-time tokens are stored; the raw token exists
// only in the emailed link.
type AuthService struct {
	users    UserStore
	codec    *utils.SessionCodec
	notify   *NotificationService
	activity *ActivityLogger
	cfg      AuthConfig
	now      func() time.Time

	// dummyHash is compared on unknown emails so their login takes as long
	// as a wrong password.
	dummyHash string
	verify    func(hash, plain string) bool
}

func NewAuthService(users UserStore, codec *utils.SessionCodec, notify *NotificationService, activity *ActivityLogger, cfg AuthConfig) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = utils.DefaultBcryptCost
	}
	if cfg.VerificationTTL == 0 {
		cfg.VerificationTTL = 24 * time.Hour
	}
	if cfg.ResetTTL == 0 {
		cfg.ResetTTL = time.Hour
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	dummy, err := utils.HashPassword("ecowaste-timing-equaliser", cfg.BcryptCost)
	if err != nil {
		logger.L().Warn("dummy password hash", zap.Error(err))
	}
	return &AuthService{
		users:     users,
		codec:     codec,
		notify:    notify,
		activity:  activity,
		cfg:       cfg,
		now:       time.Now,
		dummyHash: dummy,
		verify:    utils.VerifyPassword,
	}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Region   string `json:"region"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register creates an unverified account and emails the verification link.
// A failed email does not fail the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta RequestMeta) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Phone == "" || in.Region == "" || in.Password == "" || in.Role == "" {
		return nil, apperr.Validation(msgAllFieldsRequired)
	}
	role, err := model.ParseRole(in.Role)
	if err != nil || !role.SelfRegistrable() {
		return nil, apperr.Validation("Invalid role")
	}
	if !utils.IsValidEmail(in.Email) {
		return nil, apperr.Validation(msgInvalidEmail)
	}
	if !utils.IsValidPassword(in.Password) {
		return nil, apperr.Validation(msgWeakPassword)
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Dependency("hash password", err)
	}
	raw, err := utils.NewOpaqueToken()
	if err != nil {
		return nil, apperr.Dependency("generate verification token", err)
	}
	tokenHash := utils.HashToken(raw)
	expires := s.now().UTC().Add(s.cfg.VerificationTTL)

	u := &model.User{
		Name:                     in.Name,
		Email:                    in.Email,
		PasswordHash:             hash,
		Phone:                    strings.TrimSpace(in.Phone),
		Region:                   strings.TrimSpace(in.Region),
		Role:                     role,
		EmailVerificationToken:   &tokenHash,
		EmailVerificationExpires: &expires,
		IsActive:                 true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, apperr.Conflict("User with this email already exists")
		}
		return nil, apperr.Dependency("create user", err)
	}

	link := s.cfg.BaseURL + "/auth/verify-email?token=" + url.QueryEscape(raw)
	if msg, err := mail.VerificationEmail(u.Email, u.Name, link, s.cfg.VerificationTTL); err != nil {
		logger.WithContext(ctx).Error("render verification email", zap.Error(err))
	} else {
		s.notify.Email(ctx, msg)
	}
	s.activity.Log(ctx, u.ID, model.ActionRegister, map[string]any{"role": string(role)}, meta)
	return u, nil
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // optional; must match the account when given
}

// Session is an issued session token and its expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Login checks credentials and issues a session.  Unknown email, wrong
// password and role mismatch are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta RequestMeta) (*model.User, *Session, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, nil, apperr.Validation("Email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.verify(s.dummyHash, in.Password)
			return nil, nil, apperr.Authentication(msgInvalidCreds)
		}
		return nil, nil, apperr.Dependency("load user", err)
	}
	if !s.verify(u.PasswordHash, in.Password) {
		return nil, nil, apperr.Authentication(msgInvalidCreds)
	}
	if in.Role != "" {
		role, err := model.ParseRole(in.Role)
		if err != nil || role != u.Role {
			return nil, nil, apperr.Authentication(msgInvalidCreds)
		}
	}
	if !u.IsEmailVerified {
		return nil, nil, apperr.Authentication(msgVerifyFirst)
	}
	if !u.IsActive {
		return nil, nil, apperr.Authorization("Account is disabled")
	}

	token, exp, err := s.codec.Issue(utils.SessionClaims{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, nil, apperr.Dependency("issue session", err)
	}
	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		logger.WithContext(ctx).Warn("stamp last login", zap.Uint64("user_id", u.ID), zap.Error(err))
	} else {
		u.LastLoginAt = &now
	}
	s.activity.Log(ctx, u.ID, model.ActionLogin, nil, meta)
	return u, &Session{Token: token, ExpiresAt: exp}, nil
}

// VerifyEmail redeems a verification token.  A token works once.
func (s *AuthService) VerifyEmail(ctx context.Context, token string, meta RequestMeta) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Validation("Verification token is required")
	}
	u, err := s.users.RedeemVerificationToken(ctx, utils.HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Validation("Invalid or expired verification token")
		}
		return nil, apperr.Dependency("redeem verification token", err)
	}
	s.activity.Log(ctx, u.ID, model.ActionVerifyEmail, nil, meta)
	return u, nil
}

// ForgotPassword always reports the same outcome so callers cannot probe
// which emails are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperr.Validation("Email is required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return msgForgotPassword, nil
		}
		return "", apperr.Dependency("load user", err)
	}

	raw, err := utils.NewOpaqueToken()
	if err != nil {
		return "", apperr.Dependency("generate reset token", err)
	}
	expires := s.now().UTC().Add(s.cfg.ResetTTL)
	if err := s.users.SetPasswordResetToken(ctx, u.ID, utils.HashToken(raw), expires); err != nil {
		return "", apperr.Dependency("store reset token", err)
	}

	link := s.cfg.BaseURL + "/auth/reset-password?token=" + url.QueryEscape(raw)
	if msg, err := mail.PasswordResetEmail(u.Email, u.Name, link, s.cfg.ResetTTL); err != nil {
		logger.WithContext(ctx).Error("render reset email", zap.Error(err))
	} else {
		s.notify.Email(ctx, msg)
	}
	return msgForgotPassword, nil
}

// ResetPassword redeems a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string, meta RequestMeta) error {
	token = strings.TrimSpace(token)
	if token == "" || password == "" {
		return apperr.Validation("Token and password are required")
	}
	if !utils.IsValidPassword(password) {
		return apperr.Validation(msgWeakPassword)
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return apperr.Dependency("hash password", err)
	}
	id, err := s.users.RedeemPasswordResetToken(ctx, utils.HashToken(token), hash, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Validation("Invalid or expired reset token")
		}
		return apperr.Dependency("redeem reset token", err)
	}
	s.activity.Log(ctx, id, model.ActionResetPassword, nil, meta)
	return nil
}
