package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/config"
	"github.com/iliyamo/ecowaste-cert/internal/logger"
	"github.com/iliyamo/ecowaste-cert/internal/metrics"
	"github.com/iliyamo/ecowaste-cert/internal/ratelimit"
)

const msgTooManyRequests = "Too many requests. Please try again later."

// RateLimit counts each request against the (client ip, request path) pair
// with the fixed-window rule of route.  A nil limiter disables limiting and
// a limiter error lets the request through.
func RateLimit(limiter ratelimit.Limiter, route string, rule config.RouteRule) echo.MiddlewareFunc {
	if limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	r := ratelimit.Rule{Window: rule.Window, Max: rule.Max}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(c)
			ctx := c.Request().Context()

			d, err := limiter.Allow(ctx, key, r)
			if err != nil {
				logger.WithContext(ctx).Warn("rate limiter unavailable",
					zap.String("route", route), zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(r.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				metrics.RateLimited(route)
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": msgTooManyRequests})
			}
			return next(c)
		}
	}
}

func buildRateKey(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return ip + ":" + c.Request().URL.Path
}
