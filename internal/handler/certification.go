package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecowaste-cert/internal/middleware"
	"github.com/iliyamo/ecowaste-cert/internal/service"
)

// CertificationHandler serves recycler applications and the evaluator
// actions on them.
type CertificationHandler struct {
	Certs *service.CertificationService
}

func NewCertificationHandler(certs *service.CertificationService) *CertificationHandler {
	return &CertificationHandler{Certs: certs}
}

type reasonReq struct {
	Reason string `json:"reason"`
}

func (h *CertificationHandler) Apply(c echo.Context) error {
	var req service.ApplyInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	cert, err := h.Certs.Apply(ctx, middleware.CurrentUser(c), req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Certification application submitted successfully",
		"application": echo.Map{
			"id":        cert.ID,
			"status":    cert.Status,
			"appliedAt": cert.AppliedAt,
		},
	})
}

func (h *CertificationHandler) ListMine(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	out, err := h.Certs.ListMine(ctx, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"certifications": out})
}

// ListAll: GET /v1/admin/certifications
func (h *CertificationHandler) ListAll(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	out, err := h.Certs.ListAll(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"certifications": out})
}

// Transition: PATCH /v1/admin/certifications/:id
func (h *CertificationHandler) Transition(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid certification ID"})
	}
	var req service.TransitionInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	cert, err := h.Certs.Transition(ctx, middleware.CurrentUser(c), id, req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Certification updated successfully", "certification": cert})
}

// Revoke: POST /v1/admin/certifications/:id/revoke
func (h *CertificationHandler) Revoke(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid certification ID"})
	}
	var req reasonReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	cert, err := h.Certs.Revoke(ctx, middleware.CurrentUser(c), id, req.Reason, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Certification revoked successfully", "certification": cert})
}

// Notify: POST /v1/admin/certifications/:id/notify
func (h *CertificationHandler) Notify(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid certification ID"})
	}
	var req reasonReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	receipt, err := h.Certs.Notify(ctx, middleware.CurrentUser(c), id, req.Reason, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification sent successfully", "notification": receipt})
}
