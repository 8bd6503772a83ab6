package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecowaste-cert/internal/middleware"
	"github.com/iliyamo/ecowaste-cert/internal/service"
)

type NotificationHandler struct {
	Notify *service.NotificationService
}

func NewNotificationHandler(notify *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notify: notify}
}

type markReadReq struct {
	NotificationID uint64 `json:"notificationId"`
}

func (h *NotificationHandler) List(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()

	out, err := h.Notify.List(ctx, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out})
}

// MarkRead: PATCH /v1/notifications {"notificationId": n}
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	var req markReadReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	if err := h.Notify.MarkRead(ctx, middleware.CurrentUser(c), req.NotificationID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification marked as read"})
}
