package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecowaste-cert/internal/config"
	"github.com/iliyamo/ecowaste-cert/internal/middleware"
	"github.com/iliyamo/ecowaste-cert/internal/service"
	"github.com/iliyamo/ecowaste-cert/internal/utils"
)

// AuthHandler serves registration, login, logout and the one-time-token
// flows.  The session travels only in the auth-token cookie.
type AuthHandler struct {
	Auth       *service.AuthService
	SessionTTL time.Duration
	Secure     bool
}

func NewAuthHandler(auth *service.AuthService, cfg config.Config) *AuthHandler {
	return &AuthHandler{Auth: auth, SessionTTL: cfg.SessionTTL, Secure: cfg.IsProduction() || cfg.CookieSecure}
}

type emailReq struct {
	Email string `json:"email"`
}

type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Register: POST /v1/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Registration successful! Please check your email to verify your account.",
		"user":    u.Public(),
	})
}

// Login: POST /v1/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, sess, err := h.Auth.Login(ctx, req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	c.SetCookie(h.sessionCookie(sess.Token, int(h.SessionTTL.Seconds())))
	return c.JSON(http.StatusOK, echo.Map{"message": "Login successful", "user": u.Public()})
}

// Logout clears the session cookie.  It succeeds without a session.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", -1))
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// VerifyEmail: GET /v1/auth/verify-email?token=
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Auth.VerifyEmail(ctx, c.QueryParam("token"), requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Email verified successfully! You can now log in to your account.",
		"user":    u.Public(),
	})
}

// ForgotPassword: POST /v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	msg, err := h.Auth.ForgotPassword(ctx, req.Email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// ResetPassword: POST /v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.Password, requestMeta(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset successfully. You can now log in with your new password."})
}

// Me: GET /v1/me
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": middleware.CurrentUser(c).Public()})
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
