package service

import (
	"strings"

	"github.com/noah-isme/ppdb-map-api/internal/dto"
	"github.com/noah-isme/ppdb-map-api/internal/models"
)

// StatusBadgeFor renders the status cell. The label keeps the original text; absent or
// blank statuses read "Tidak Lulus".
func StatusBadgeFor(status *string) dto.StatusBadge {
	if status == nil || strings.TrimSpace(*status) == "" {
		return dto.StatusBadge{Label: dto.NotPassedLabel, Class: dto.BadgeClassNotPassed}
	}
	if models.IsPassedStatus(status) {
		return dto.StatusBadge{Label: *status, Class: dto.BadgeClassPassed}
	}
	return dto.StatusBadge{Label: *status, Class: dto.BadgeClassNotPassed}
}

// MarkerShapeFor picks the map marker for a status.
func MarkerShapeFor(status *string) dto.MarkerShape {
	if models.IsPassedStatus(status) {
		return dto.MarkerCircleOutline
	}
	return dto.MarkerCross
}

// BuildView projects filtered records into table rows and map points. Both slices follow
// the input order, one entry per record.
func BuildView(records []models.Admission, colors *ColorAssignment) ([]dto.TableRow, []dto.MapPoint) {
	rows := make([]dto.TableRow, 0, len(records))
	points := make([]dto.MapPoint, 0, len(records))
	for _, record := range records {
		rows = append(rows, dto.TableRow{
			Level:             record.Level,
			Track:             record.Track,
			DestinationSchool: record.DestinationSchool,
			RegistrationID:    record.RegistrationID,
			AdmissionStatus:   record.Status,
			StatusBadge:       StatusBadgeFor(record.Status),
		})
		points = append(points, dto.MapPoint{
			Latitude:  record.Latitude,
			Longitude: record.Longitude,
			Color:     colors.ColorFor(record.DestinationSchool),
			Shape:     MarkerShapeFor(record.Status),
			Popup: dto.MapPopup{
				RegistrationID:    record.RegistrationID,
				DestinationSchool: record.DestinationSchool,
				AdmissionStatus:   record.Status,
			},
		})
	}
	return rows, points
}

func countView(records []models.Admission) dto.ViewCounts {
	counts := dto.ViewCounts{Total: len(records)}
	for _, record := range records {
		if record.Passed() {
			counts.Passed++
		}
	}
	counts.NotPassed = counts.Total - counts.Passed
	return counts
}
