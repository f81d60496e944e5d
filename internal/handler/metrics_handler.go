package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ppdb-map-api/internal/middleware"
	"github.com/noah-isme/ppdb-map-api/internal/service"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics   *service.MetricsService
	readiness middleware.DatasetReadiness
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, readiness middleware.DatasetReadiness) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, readiness: readiness}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the admission dataset is loaded.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.readiness != nil {
		if err := h.readiness.Ready(); err != nil {
			appErr := appErrors.FromError(err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "code": appErr.Code, "reason": appErr.Message})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
