package dto

import "github.com/noah-isme/ppdb-map-api/internal/models"

// Badge classes rendered next to each admission status.
const (
	BadgeClassPassed    = "passed"
	BadgeClassNotPassed = "not-passed"
)

// NotPassedLabel is shown for records without an admission status.
const NotPassedLabel = "Tidak Lulus"

// MarkerShape describes how a map point is drawn.
type MarkerShape string

const (
	MarkerCircleOutline MarkerShape = "circle-outline"
	MarkerCross         MarkerShape = "cross"
)

// StatusBadge is the rendered status cell of a table row.
type StatusBadge struct {
	Label string `json:"label"`
	Class string `json:"class"`
}

// TableRow is the tabular projection of one admission.
type TableRow struct {
	Level             string      `json:"jenjang"`
	Track             string      `json:"jalur"`
	DestinationSchool *string     `json:"nama_sekolah_tujuan"`
	RegistrationID    string      `json:"pendaftaran_id"`
	AdmissionStatus   *string     `json:"status_penerimaan"`
	StatusBadge       StatusBadge `json:"status_badge"`
}

// MapPopup is rendered verbatim by the map layer when a point is clicked.
type MapPopup struct {
	RegistrationID    string  `json:"pendaftaran_id"`
	DestinationSchool *string `json:"nama_sekolah_tujuan"`
	AdmissionStatus   *string `json:"status_penerimaan"`
}

// MapPoint is the geospatial projection of one admission.
type MapPoint struct {
	Latitude  float64     `json:"lat"`
	Longitude float64     `json:"lon"`
	Color     string      `json:"color"`
	Shape     MarkerShape `json:"shape"`
	Popup     MapPopup    `json:"popup"`
}

// ViewCounts summarises a filtered view.
type ViewCounts struct {
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	NotPassed int `json:"not_passed"`
}

// DashboardView is the table and map payload for one filter selection.
type DashboardView struct {
	Selection models.FilterSelection `json:"selection"`
	Counts    ViewCounts             `json:"counts"`
	Rows      []TableRow             `json:"rows"`
	Points    []MapPoint             `json:"points"`
	Bounds    *BoundingBox           `json:"bounds,omitempty"`
	Hint      string                 `json:"hint,omitempty"`
}

// BoundingBox encloses every point of a view.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// LegendEntry maps a destination school to its marker colour.
type LegendEntry struct {
	School string `json:"school"`
	Color  string `json:"color"`
}

// ShapeLegendEntry explains one marker shape.
type ShapeLegendEntry struct {
	Shape MarkerShape `json:"shape"`
	Label string      `json:"label"`
}

// MapSettings carries the initial map viewport.
type MapSettings struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      int     `json:"zoom"`
}

// DatasetStats describes the loaded dataset.
type DatasetStats struct {
	Source   string `json:"source"`
	Identity string `json:"identity"`
	Records  int    `json:"records"`
	Dropped  int    `json:"dropped"`
	LoadedAt string `json:"loaded_at"`
}

// DashboardOptions is everything a client needs to build its filter controls.
type DashboardOptions struct {
	Levels           []string               `json:"jenjang"`
	Tracks           []string               `json:"jalur"`
	DefaultSelection models.FilterSelection `json:"default_selection"`
	SchoolLegend     []LegendEntry          `json:"school_legend"`
	ShapeLegend      []ShapeLegendEntry     `json:"shape_legend"`
	FallbackColor    string                 `json:"fallback_color"`
	Map              MapSettings            `json:"map"`
	Dataset          DatasetStats           `json:"dataset"`
}

// SessionState is a per-user filter session.
type SessionState struct {
	ID        string                 `json:"id"`
	Selection models.FilterSelection `json:"selection"`
	UpdatedAt string                 `json:"updated_at"`
}

// UpdateFilterRequest replaces the selected values of one filter field.
type UpdateFilterRequest struct {
	Values []string `json:"values" validate:"dive,required,max=128"`
}

// ExportRequest describes a table download.
type ExportRequest struct {
	Format    string                 `validate:"required,oneof=csv pdf"`
	Selection models.FilterSelection `validate:"-"`
}
