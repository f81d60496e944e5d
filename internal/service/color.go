package service

import (
	"github.com/noah-isme/ppdb-map-api/internal/dto"
	"github.com/noah-isme/ppdb-map-api/internal/models"
)

// DefaultPalette lists the marker colours assigned to destination schools in order.
var DefaultPalette = []string{
	"#e53e3e", "#3182ce", "#38a169", "#d69e2e",
	"#805ad5", "#319795", "#dd6b20", "#00b5d8",
	"#b794f4", "#f687b3",
}

// FallbackColor is used for records without a mapped destination school.
const FallbackColor = "#666666"

// ColorAssignment maps destination schools to palette colours. It is built once from the
// full dataset and never from a filtered subset, so a school keeps its colour across filters.
type ColorAssignment struct {
	order  []string
	colors map[string]string
}

// AssignColors walks records in order and gives each new, non-absent school the next
// palette entry, wrapping around when schools outnumber colours.
func AssignColors(records []models.Admission, palette []string) *ColorAssignment {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	assignment := &ColorAssignment{colors: make(map[string]string)}
	for _, record := range records {
		school := record.DestinationSchool
		if school == nil || *school == "" {
			continue
		}
		if _, ok := assignment.colors[*school]; ok {
			continue
		}
		assignment.colors[*school] = palette[len(assignment.order)%len(palette)]
		assignment.order = append(assignment.order, *school)
	}
	return assignment
}

// ColorFor returns the school's colour or FallbackColor.
func (a *ColorAssignment) ColorFor(school *string) string {
	if a == nil || school == nil {
		return FallbackColor
	}
	if color, ok := a.colors[*school]; ok {
		return color
	}
	return FallbackColor
}

// Len returns the number of mapped schools.
func (a *ColorAssignment) Len() int {
	if a == nil {
		return 0
	}
	return len(a.order)
}

// Legend lists schools in assignment order.
func (a *ColorAssignment) Legend() []dto.LegendEntry {
	if a == nil {
		return []dto.LegendEntry{}
	}
	legend := make([]dto.LegendEntry, 0, len(a.order))
	for _, school := range a.order {
		legend = append(legend, dto.LegendEntry{School: school, Color: a.colors[school]})
	}
	return legend
}
