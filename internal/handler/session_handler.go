package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ppdb-map-api/internal/dto"
	"github.com/noah-isme/ppdb-map-api/internal/models"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
	"github.com/noah-isme/ppdb-map-api/pkg/response"
)

type sessionService interface {
	Create(ctx context.Context) (*dto.SessionState, error)
	Get(ctx context.Context, id string) (*dto.SessionState, error)
	Select(ctx context.Context, id string, field models.FilterField, req dto.UpdateFilterRequest) (*dto.SessionState, error)
	SelectAll(ctx context.Context, id string, field models.FilterField) (*dto.SessionState, error)
	Clear(ctx context.Context, id string, field models.FilterField) (*dto.SessionState, error)
	Delete(ctx context.Context, id string) error
}

type viewBuilder interface {
	View(ctx context.Context, selection models.FilterSelection) (*dto.DashboardView, bool, error)
}

// SessionHandler exposes per-user filter sessions.
type SessionHandler struct {
	sessions sessionService
	views    viewBuilder
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionService, views viewBuilder) *SessionHandler {
	return &SessionHandler{sessions: sessions, views: views}
}

// Create godoc
// @Summary Start a filter session with the default selection
// @Tags Sessions
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	state, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, state)
}

// Get godoc
// @Summary Current selection of a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	state, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// Delete godoc
// @Summary End a session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Select godoc
// @Summary Replace the selected values of one filter field
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param field path string true "jenjang or jalur"
// @Param payload body dto.UpdateFilterRequest true "Selected values"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/filters/{field} [put]
func (h *SessionHandler) Select(c *gin.Context) {
	field, ok := filterField(c)
	if !ok {
		return
	}
	var req dto.UpdateFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	state, err := h.sessions.Select(c.Request.Context(), c.Param("id"), field, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// SelectAll godoc
// @Summary Select every known value of one filter field
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param field path string true "jenjang or jalur"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/filters/{field}/all [post]
func (h *SessionHandler) SelectAll(c *gin.Context) {
	field, ok := filterField(c)
	if !ok {
		return
	}
	state, err := h.sessions.SelectAll(c.Request.Context(), c.Param("id"), field)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// Clear godoc
// @Summary Deselect every value of one filter field
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param field path string true "jenjang or jalur"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/filters/{field} [delete]
func (h *SessionHandler) Clear(c *gin.Context) {
	field, ok := filterField(c)
	if !ok {
		return
	}
	state, err := h.sessions.Clear(c.Request.Context(), c.Param("id"), field)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// View godoc
// @Summary Table rows and map points for the session's selection
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/view [get]
func (h *SessionHandler) View(c *gin.Context) {
	start := time.Now()
	state, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	view, cacheHit, err := h.views.View(c.Request.Context(), state.Selection)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeView(c, view, cacheHit, start)
}

func filterField(c *gin.Context) (models.FilterField, bool) {
	field := models.FilterField(c.Param("field"))
	if !field.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "field must be jenjang or jalur"))
		return "", false
	}
	return field, true
}
