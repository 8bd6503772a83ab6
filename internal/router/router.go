package router

import (
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/ecowaste-cert/internal/config"
	"github.com/iliyamo/ecowaste-cert/internal/handler"
	"github.com/iliyamo/ecowaste-cert/internal/metrics"
	"github.com/iliyamo/ecowaste-cert/internal/middleware"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/ratelimit"
	"github.com/iliyamo/ecowaste-cert/internal/utils"
)

// Deps carries what route registration needs besides the handlers.
type Deps struct {
	Codec     *utils.SessionCodec
	Users     middleware.UserLoader
	Limiter   ratelimit.Limiter // nil disables rate limiting
	RateLimit config.RateLimitConfig
	Cache     echo.MiddlewareFunc // nil disables the directory cache
}

func (d Deps) limit(route string) echo.MiddlewareFunc {
	return middleware.RateLimit(d.Limiter, route, d.RateLimit.Rule(route))
}

func (d Deps) auth(caps ...model.Capability) echo.MiddlewareFunc {
	return middleware.RequireAuth(d.Codec, d.Users, caps...)
}

func (d Deps) cache() echo.MiddlewareFunc {
	if d.Cache == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return d.Cache
}

// Setup installs the process-wide middleware chain and the JSON error
// handler.  The client address used for rate limiting and audit entries is
// the TCP peer unless the peer is one of trustedProxies.
func Setup(e *echo.Echo, trustedProxies ...*net.IPNet) {
	e.HideBanner = true
	e.IPExtractor = clientIPExtractor(trustedProxies)
	e.HTTPErrorHandler = jsonErrorHandler
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.AccessLog())
}

// clientIPExtractor ignores forwarding headers unless they were added by a
// trusted proxy.  echo trusts private and loopback ranges by default; those
// are switched off so only the configured networks count.
func clientIPExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// jsonErrorHandler keeps echo's own errors (404, 405, bind failures) in the
// {"error": message} shape.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := http.StatusInternalServerError, "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": msg})
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the session and one-time-token endpoints under
// /v1/auth, plus /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, d Deps) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, d.limit(config.RouteAuth))
	g.POST("/login", a.Login, d.limit(config.RouteAuth))
	g.POST("/logout", a.Logout)
	g.GET("/verify-email", a.VerifyEmail)
	g.POST("/forgot-password", a.ForgotPassword, d.limit(config.RoutePasswordReset))
	g.POST("/reset-password", a.ResetPassword, d.limit(config.RoutePasswordReset))

	e.GET("/v1/me", a.Me, d.auth())
}

// RegisterPublic registers the guest-readable directories.  Responses are
// served through the response cache when one is configured.
func RegisterPublic(e *echo.Echo, dir *handler.DirectoryHandler, d Deps) {
	e.GET("/v1/handlers", dir.ListHandlers, d.cache())
	e.GET("/v1/waste-collectors", dir.ListCollectors, d.cache())
}
