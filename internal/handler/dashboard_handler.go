package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"

	"github.com/noah-isme/ppdb-map-api/internal/dto"
	"github.com/noah-isme/ppdb-map-api/internal/middleware"
	"github.com/noah-isme/ppdb-map-api/internal/models"
	"github.com/noah-isme/ppdb-map-api/internal/service"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
	"github.com/noah-isme/ppdb-map-api/pkg/response"
)

type dashboardService interface {
	Options(ctx context.Context) (*dto.DashboardOptions, error)
	View(ctx context.Context, selection models.FilterSelection) (*dto.DashboardView, bool, error)
	MapGeoJSON(ctx context.Context, selection models.FilterSelection) (*geojson.FeatureCollection, error)
}

type exportService interface {
	Export(ctx context.Context, req dto.ExportRequest) (*service.ExportFile, error)
}

// DashboardHandler serves stateless dashboard views: the selection travels in the query.
type DashboardHandler struct {
	service dashboardService
	exports exportService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService, exports exportService) *DashboardHandler {
	return &DashboardHandler{service: service, exports: exports}
}

// Options godoc
// @Summary Filter options, legends and map defaults
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /dashboard/options [get]
func (h *DashboardHandler) Options(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	opts, err := h.service.Options(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opts)
}

// View godoc
// @Summary Table rows and map points for a selection
// @Tags Dashboard
// @Produce json
// @Param jenjang query []string false "Selected levels" collectionFormat(multi)
// @Param jalur query []string false "Selected tracks" collectionFormat(multi)
// @Success 200 {object} response.Envelope
// @Router /dashboard/view [get]
func (h *DashboardHandler) View(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	view, cacheHit, err := h.service.View(c.Request.Context(), selectionFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeView(c, view, cacheHit, start)
}

// MapGeoJSON godoc
// @Summary Map points for a selection as GeoJSON
// @Tags Dashboard
// @Produce json
// @Param jenjang query []string false "Selected levels" collectionFormat(multi)
// @Param jalur query []string false "Selected tracks" collectionFormat(multi)
// @Success 200 {object} map[string]interface{}
// @Router /dashboard/map.geojson [get]
func (h *DashboardHandler) MapGeoJSON(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	fc, err := h.service.MapGeoJSON(c.Request.Context(), selectionFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := fc.MarshalJSON()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/geo+json", payload)
}

// Export godoc
// @Summary Download the table for a selection
// @Tags Dashboard
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Param jenjang query []string false "Selected levels" collectionFormat(multi)
// @Param jalur query []string false "Selected tracks" collectionFormat(multi)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /dashboard/export [get]
func (h *DashboardHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.ErrExportsDisabled)
		return
	}
	file, err := h.exports.Export(c.Request.Context(), dto.ExportRequest{
		Format:    c.Query("format"),
		Selection: selectionFromQuery(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// selectionFromQuery reads repeated jenjang and jalur parameters. A missing parameter
// selects nothing for that field.
func selectionFromQuery(c *gin.Context) models.FilterSelection {
	return models.NewFilterSelection(
		queryValues(c, string(models.FieldLevel)),
		queryValues(c, string(models.FieldTrack)),
	)
}

func queryValues(c *gin.Context, key string) []string {
	raw := c.QueryArray(key)
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func writeView(c *gin.Context, view *dto.DashboardView, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	if view.Hint != "" {
		middleware.SetMeta(c, "hint", view.Hint)
	}
	response.JSON(c, http.StatusOK, view, middleware.ExtractMeta(c, start))
}
