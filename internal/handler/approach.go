package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecowaste-cert/internal/middleware"
	"github.com/iliyamo/ecowaste-cert/internal/service"
)

type ApproachHandler struct {
	Approach *service.ApproachService
}

func NewApproachHandler(approach *service.ApproachService) *ApproachHandler {
	return &ApproachHandler{Approach: approach}
}

// Create: POST /v1/approach-requests
func (h *ApproachHandler) Create(c echo.Context) error {
	var req service.CreateApproachInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	ar, err := h.Approach.Create(ctx, middleware.CurrentUser(c), req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "Approach request sent successfully",
		"requestId": ar.ID,
	})
}

// List: GET /v1/approach-requests
func (h *ApproachHandler) List(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	out, err := h.Approach.List(ctx, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": out})
}

// Respond: PATCH /v1/approach-requests/:id
func (h *ApproachHandler) Respond(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request ID"})
	}
	var req service.RespondInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	ar, err := h.Approach.Respond(ctx, middleware.CurrentUser(c), id, req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"request": ar})
}
