package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ppdb-map-api/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Metrics   *MetricsHandler
	Dashboard *DashboardHandler
	Sessions  *SessionHandler
}

// RegisterRoutes mounts the API under prefix. Dashboard and session routes refuse to
// serve while the dataset is unavailable.
func RegisterRoutes(r gin.IRouter, prefix string, h Handlers, readiness middleware.DatasetReadiness) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.GET("/health", h.Metrics.Health)
	api.GET("/ready", h.Metrics.Ready)

	guarded := api.Group("")
	guarded.Use(middleware.RequireDataset(readiness))

	dashboard := guarded.Group("/dashboard")
	dashboard.GET("/options", h.Dashboard.Options)
	dashboard.GET("/view", h.Dashboard.View)
	dashboard.GET("/map.geojson", h.Dashboard.MapGeoJSON)
	dashboard.GET("/export", h.Dashboard.Export)

	sessions := guarded.Group("/sessions")
	sessions.POST("", h.Sessions.Create)
	sessions.GET("/:id", h.Sessions.Get)
	sessions.DELETE("/:id", h.Sessions.Delete)
	sessions.GET("/:id/view", h.Sessions.View)
	sessions.PUT("/:id/filters/:field", h.Sessions.Select)
	sessions.DELETE("/:id/filters/:field", h.Sessions.Clear)
	sessions.POST("/:id/filters/:field/all", h.Sessions.SelectAll)
}
