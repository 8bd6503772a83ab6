package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/logger"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
	"github.com/iliyamo/ecowaste-cert/internal/utils"
)

// UserLoader is the lookup RequireAuth uses to resolve the session subject.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

const msgSessionOutdated = "Session is out of date, please log in again"

// RequireAuth verifies the session cookie and loads the caller.  The checks
// run in a fixed order: cookie present, token valid, role holds caps, user
// exists and is verified and active.  A session whose role no longer matches
// the account (after an admin role change) must be re-issued.  On success the user and claims are
// available through CurrentUser and CurrentClaims.
func RequireAuth(codec *utils.SessionCodec, users UserLoader, caps ...model.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(utils.SessionCookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
			}
			claims, ok := codec.Verify(cookie.Value)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
			}
			c.Set(ctxClaimsKey, claims)
			if !allows(claims.Role, caps) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Insufficient permissions"})
			}

			u, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				logger.WithContext(c.Request().Context()).Error("load session user",
					zap.Uint64("user_id", claims.UserID), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
			}
			if u == nil || !u.IsEmailVerified || !u.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "User not found or not verified"})
			}
			if u.Role != claims.Role {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgSessionOutdated})
			}
			c.Set(ctxUserKey, u)
			return next(c)
		}
	}
}
