package service

import (
	"sort"

	"github.com/noah-isme/ppdb-map-api/internal/models"
)

// ApplyFilter returns the records whose level is in levels and whose track is in tracks,
// in their original order. An empty set on either field matches nothing.
func ApplyFilter(records []models.Admission, levels, tracks []string) []models.Admission {
	matched := []models.Admission{}
	if len(levels) == 0 || len(tracks) == 0 {
		return matched
	}
	levelSet := toSet(levels)
	trackSet := toSet(tracks)
	for _, record := range records {
		if _, ok := levelSet[record.Level]; !ok {
			continue
		}
		if _, ok := trackSet[record.Track]; !ok {
			continue
		}
		matched = append(matched, record)
	}
	return matched
}

// ApplySelection is ApplyFilter over a FilterSelection.
func ApplySelection(records []models.Admission, selection models.FilterSelection) []models.Admission {
	return ApplyFilter(records, selection.Levels, selection.Tracks)
}

// DistinctValues returns the sorted distinct non-empty values of field over records.
func DistinctValues(records []models.Admission, field models.FilterField) []string {
	seen := make(map[string]struct{})
	values := []string{}
	for _, record := range records {
		var v string
		switch field {
		case models.FieldLevel:
			v = record.Level
		case models.FieldTrack:
			v = record.Track
		default:
			return values
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
