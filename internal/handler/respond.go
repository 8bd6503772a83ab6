package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/apperr"
	"github.com/iliyamo/ecowaste-cert/internal/logger"
	"github.com/iliyamo/ecowaste-cert/internal/service"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

// respondError renders err as {"error": message} with the status of its
// kind.  Dependency failures are logged and reported generically.
func respondError(c echo.Context, err error) error {
	ae := apperr.As(err)
	if ae.Kind == apperr.KindDependency {
		logger.WithContext(c.Request().Context()).Error("request failed",
			zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(ae.Status(), echo.Map{"error": ae.PublicMessage()})
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
}

// timeout derives the per-request storage context.
func timeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func requestMeta(c echo.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
