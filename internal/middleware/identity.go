package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/utils"
)

const (
	ctxUserKey   = "user"
	ctxClaimsKey = "claims"
)

// CurrentUser returns the user loaded by RequireAuth, or nil on public
// routes.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUserKey).(*model.User)
	return u
}

// CurrentClaims returns the verified session claims stored by RequireAuth.
func CurrentClaims(c echo.Context) *utils.SessionClaims {
	cl, _ := c.Get(ctxClaimsKey).(*utils.SessionClaims)
	return cl
}

// actorID identifies the caller in access logs.  It returns "guest" when no
// session has been verified.
func actorID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return strconv.FormatUint(u.ID, 10)
	}
	if cl := CurrentClaims(c); cl != nil {
		return strconv.FormatUint(cl.UserID, 10)
	}
	return "guest"
}
