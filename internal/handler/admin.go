package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecowaste-cert/internal/middleware"
	"github.com/iliyamo/ecowaste-cert/internal/service"
)

// AdminHandler serves the dashboard and user management.
type AdminHandler struct {
	Admin *service.AdminService
}

func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{Admin: admin}
}

func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	d, err := h.Admin.Dashboard(ctx, middleware.CurrentUser(c), requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListUsers: GET /v1/admin/users?role=&isActive=&page=&limit=
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	page, err := h.Admin.ListUsers(ctx, middleware.CurrentUser(c), service.UserQuery{
		Role:     c.QueryParam("role"),
		IsActive: c.QueryParam("isActive"),
		Page:     c.QueryParam("page"),
		Limit:    c.QueryParam("limit"),
	}, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// UpdateUser: PATCH /v1/admin/users {"userId": n, "updates": {...}}
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req service.UpdateUserInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Admin.UpdateUser(ctx, middleware.CurrentUser(c), req, requestMeta(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully", "user": u.Public()})
}
