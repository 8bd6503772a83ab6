package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecowaste-cert/internal/middleware"
	"github.com/iliyamo/ecowaste-cert/internal/service"
)

// DirectoryHandler serves the public directories and the collector
// profile, feedback and statistics endpoints.
type DirectoryHandler struct {
	Dir *service.DirectoryService
}

func NewDirectoryHandler(dir *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{Dir: dir}
}

type verifyCollectorReq struct {
	IsVerified *bool `json:"isVerified"`
}

// ListHandlers: GET /v1/handlers?rating=&activityType=&region=&validity=
func (h *DirectoryHandler) ListHandlers(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	out, err := h.Dir.ListHandlers(ctx, service.HandlerQuery{
		Rating:       c.QueryParam("rating"),
		ActivityType: c.QueryParam("activityType"),
		Region:       c.QueryParam("region"),
		Validity:     c.QueryParam("validity"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"handlers": out})
}

func (h *DirectoryHandler) ListCollectors(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	out, err := h.Dir.ListCollectors(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"collectors": out})
}

// SaveProfile: PUT /v1/collector/profile
func (h *DirectoryHandler) SaveProfile(c echo.Context) error {
	var req service.CollectorProfileInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	wc, err := h.Dir.SaveCollectorProfile(ctx, middleware.CurrentUser(c), req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile saved successfully", "profile": wc})
}

func (h *DirectoryHandler) Stats(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	st, err := h.Dir.CollectorStats(ctx, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": st})
}

func (h *DirectoryHandler) MyFeedback(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	out, err := h.Dir.MyFeedback(ctx, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"feedbacks": out})
}

// SubmitFeedback: POST /v1/waste-collectors/:id/feedback
func (h *DirectoryHandler) SubmitFeedback(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid collector ID"})
	}
	var req service.FeedbackInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	fb, err := h.Dir.SubmitFeedback(ctx, middleware.CurrentUser(c), id, req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Feedback submitted successfully", "feedback": fb})
}

// VerifyCollector: PATCH /v1/admin/collectors/:id/verify
func (h *DirectoryHandler) VerifyCollector(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid collector ID"})
	}
	var req verifyCollectorReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if req.IsVerified == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "isVerified is required"})
	}
	ctx, cancel := timeout(c)
	defer cancel()

	wc, err := h.Dir.SetCollectorVerified(ctx, middleware.CurrentUser(c), id, *req.IsVerified, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"collector": wc})
}
