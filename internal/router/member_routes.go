package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ecowaste-cert/internal/config"
	"github.com/iliyamo/ecowaste-cert/internal/handler"
	"github.com/iliyamo/ecowaste-cert/internal/model"
)

// MemberHandlers groups the handlers behind a signed-in, non-admin session.
type MemberHandlers struct {
	Certs    *handler.CertificationHandler
	Dir      *handler.DirectoryHandler
	Approach *handler.ApproachHandler
	Notify   *handler.NotificationHandler
}

// RegisterMember registers recycler, collector and notification endpoints.
// Rate limiting runs before authentication on every route.
func RegisterMember(e *echo.Echo, h MemberHandlers, d Deps) {
	g := e.Group("/v1")

	// ---- Certifications (recycler) ----
	g.POST("/certifications", h.Certs.Apply, d.auth(model.CapApplyCertification))
	g.GET("/certifications/mine", h.Certs.ListMine, d.auth(model.CapApplyCertification))

	// ---- Approach requests ----
	g.POST("/approach-requests", h.Approach.Create, d.limit(config.RouteApproach), d.auth(model.CapApproachCollector))
	g.GET("/approach-requests", h.Approach.List, d.limit(config.RouteApproach), d.auth())
	g.PATCH("/approach-requests/:id", h.Approach.Respond, d.limit(config.RouteApproach), d.auth(model.CapRespondApproach))

	// ---- Notifications ----
	g.GET("/notifications", h.Notify.List, d.limit(config.RouteNotifications), d.auth())
	g.PATCH("/notifications", h.Notify.MarkRead, d.limit(config.RouteNotifications), d.auth())

	// ---- Collector profile ----
	g.PUT("/collector/profile", h.Dir.SaveProfile, d.auth(model.CapManageCollectorProf))
	g.GET("/collector/stats", h.Dir.Stats, d.limit(config.RouteCollectorStat), d.auth(model.CapViewCollectorStats))
	g.GET("/collector/feedback", h.Dir.MyFeedback, d.auth(model.CapViewCollectorStats))
	g.POST("/waste-collectors/:id/feedback", h.Dir.SubmitFeedback, d.auth(model.CapSubmitFeedback))
}
