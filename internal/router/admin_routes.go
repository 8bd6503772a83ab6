package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecowaste-cert/internal/config"
	"github.com/iliyamo/ecowaste-cert/internal/handler"
	"github.com/iliyamo/ecowaste-cert/internal/model"
)

// AdminHandlers groups the handlers mounted under /v1/admin.
type AdminHandlers struct {
	Admin *handler.AdminHandler
	Certs *handler.CertificationHandler
	Dir   *handler.DirectoryHandler
}

// RegisterAdmin registers the evaluator and user management endpoints.
// Each route names the capability it needs.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, d Deps) {
	g := e.Group("/v1/admin")

	g.GET("/dashboard", h.Admin.Dashboard, d.limit(config.RouteAdminDash), d.auth(model.CapViewAdminDashboard))
	g.GET("/users", h.Admin.ListUsers, d.limit(config.RouteAdminUsers), d.auth(model.CapManageUsers))
	g.PATCH("/users", h.Admin.UpdateUser, d.limit(config.RouteAdminUsers), d.auth(model.CapManageUsers))

	g.GET("/certifications", h.Certs.ListAll, d.auth(model.CapEvaluateCertification))
	g.PATCH("/certifications/:id", h.Certs.Transition, d.auth(model.CapEvaluateCertification))
	g.POST("/certifications/:id/revoke", h.Certs.Revoke, d.auth(model.CapEvaluateCertification))
	g.POST("/certifications/:id/notify", h.Certs.Notify, d.auth(model.CapNotifyRecyclers))

	g.PATCH("/collectors/:id/verify", h.Dir.VerifyCollector, d.auth(model.CapVerifyCollectors))
}
