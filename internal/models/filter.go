package models

import "sort"

// FilterField names one of the two independent filter dimensions.
type FilterField string

const (
	FieldLevel FilterField = "jenjang"
	FieldTrack FilterField = "jalur"
)

// Valid reports whether f is a known filter field.
func (f FilterField) Valid() bool {
	return f == FieldLevel || f == FieldTrack
}

// FilterSelection holds the allowed values for level and track. Both slices are kept
// sorted and de-duplicated so equal selections marshal identically.
type FilterSelection struct {
	Levels []string `json:"jenjang"`
	Tracks []string `json:"jalur"`
}

// NewFilterSelection builds a normalised selection.
func NewFilterSelection(levels, tracks []string) FilterSelection {
	return FilterSelection{Levels: normaliseValues(levels), Tracks: normaliseValues(tracks)}
}

// Values returns the selected values for field.
func (s FilterSelection) Values(field FilterField) []string {
	switch field {
	case FieldLevel:
		return s.Levels
	case FieldTrack:
		return s.Tracks
	default:
		return nil
	}
}

// With returns a copy of s with field replaced by values.
func (s FilterSelection) With(field FilterField, values []string) FilterSelection {
	next := FilterSelection{Levels: s.Levels, Tracks: s.Tracks}
	switch field {
	case FieldLevel:
		next.Levels = normaliseValues(values)
	case FieldTrack:
		next.Tracks = normaliseValues(values)
	}
	return next
}

// Empty reports whether either field has no selected values.
func (s FilterSelection) Empty() bool {
	return len(s.Levels) == 0 || len(s.Tracks) == 0
}

func normaliseValues(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
