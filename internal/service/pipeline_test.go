package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ppdb-map-api/internal/dto"
	"github.com/noah-isme/ppdb-map-api/internal/models"
)

func strPtr(v string) *string { return &v }

func admission(id, level, track string, school, status *string) models.Admission {
	return models.Admission{
		RegistrationID:    id,
		Level:             level,
		Track:             track,
		DestinationSchool: school,
		Status:            status,
		Latitude:          -5.1,
		Longitude:         119.4,
	}
}

func TestAssignColorsFirstSeenOrder(t *testing.T) {
	records := []models.Admission{
		admission("1", "SD", "Zonasi", strPtr("A"), nil),
		admission("2", "SD", "Zonasi", strPtr("B"), nil),
		admission("3", "SD", "Zonasi", strPtr("A"), nil),
		admission("4", "SD", "Zonasi", nil, nil),
		admission("5", "SD", "Zonasi", strPtr(""), nil),
	}

	colors := AssignColors(records, nil)

	assert.Equal(t, 2, colors.Len())
	assert.Equal(t, DefaultPalette[0], colors.ColorFor(strPtr("A")))
	assert.Equal(t, DefaultPalette[1], colors.ColorFor(strPtr("B")))
	assert.Equal(t, FallbackColor, colors.ColorFor(nil))
	assert.Equal(t, FallbackColor, colors.ColorFor(strPtr("Unknown")))
	assert.Equal(t, []dto.LegendEntry{
		{School: "A", Color: DefaultPalette[0]},
		{School: "B", Color: DefaultPalette[1]},
	}, colors.Legend())
}

func TestAssignColorsCyclesPalette(t *testing.T) {
	records := make([]models.Admission, 0, 12)
	for i := 0; i < 12; i++ {
		records = append(records, admission(fmt.Sprint(i), "SD", "Zonasi", strPtr(fmt.Sprintf("S%02d", i)), nil))
	}

	colors := AssignColors(records, DefaultPalette)

	assert.Equal(t, 12, colors.Len())
	assert.Equal(t, DefaultPalette[0], colors.ColorFor(strPtr("S10")))
	assert.Equal(t, DefaultPalette[1], colors.ColorFor(strPtr("S11")))
}

func TestColorsDoNotDependOnFilter(t *testing.T) {
	records := []models.Admission{
		admission("1", "SD", "Zonasi", strPtr("A"), nil),
		admission("2", "SMP", "Prestasi", strPtr("B"), nil),
	}
	colors := AssignColors(records, nil)

	filtered := ApplyFilter(records, []string{"SMP"}, []string{"Prestasi"})
	_, points := BuildView(filtered, colors)

	require.Len(t, points, 1)
	assert.Equal(t, DefaultPalette[1], points[0].Color)
}

func TestApplyFilter(t *testing.T) {
	records := []models.Admission{
		admission("1", "SD", "Zonasi", nil, nil),
		admission("2", "SMP", "Zonasi", nil, nil),
		admission("3", "SD", "Afirmasi", nil, nil),
		admission("4", "SD", "Zonasi", nil, nil),
	}

	t.Run("both fields must match", func(t *testing.T) {
		got := ApplyFilter(records, []string{"SD"}, []string{"Zonasi"})
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].RegistrationID)
		assert.Equal(t, "4", got[1].RegistrationID)
	})

	t.Run("empty levels match nothing", func(t *testing.T) {
		got := ApplyFilter(records, nil, []string{"Zonasi", "Afirmasi"})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("empty tracks match nothing", func(t *testing.T) {
		assert.Empty(t, ApplyFilter(records, []string{"SD", "SMP"}, []string{}))
	})

	t.Run("all values return every record in order", func(t *testing.T) {
		got := ApplySelection(records, models.NewFilterSelection(
			DistinctValues(records, models.FieldLevel),
			DistinctValues(records, models.FieldTrack),
		))
		assert.Equal(t, records, got)
	})

	t.Run("subset of input", func(t *testing.T) {
		got := ApplyFilter(records, []string{"SMP", "TK"}, []string{"Zonasi"})
		require.Len(t, got, 1)
		assert.Equal(t, "2", got[0].RegistrationID)
	})
}

func TestDistinctValues(t *testing.T) {
	records := []models.Admission{
		admission("1", "SMP", "Zonasi", nil, nil),
		admission("2", "SD", "Prestasi", nil, nil),
		admission("3", "SMP", "", nil, nil),
	}

	assert.Equal(t, []string{"SD", "SMP"}, DistinctValues(records, models.FieldLevel))
	assert.Equal(t, []string{"Prestasi", "Zonasi"}, DistinctValues(records, models.FieldTrack))
	assert.Empty(t, DistinctValues(records, models.FilterField("kota")))
}

func TestStatusBadgeFor(t *testing.T) {
	cases := []struct {
		name   string
		status *string
		want   dto.StatusBadge
	}{
		{name: "absent", status: nil, want: dto.StatusBadge{Label: "Tidak Lulus", Class: dto.BadgeClassNotPassed}},
		{name: "blank", status: strPtr(" "), want: dto.StatusBadge{Label: "Tidak Lulus", Class: dto.BadgeClassNotPassed}},
		{name: "lulus", status: strPtr("Lulus"), want: dto.StatusBadge{Label: "Lulus", Class: dto.BadgeClassPassed}},
		{name: "upper", status: strPtr("LULUS"), want: dto.StatusBadge{Label: "LULUS", Class: dto.BadgeClassPassed}},
		{name: "other", status: strPtr("Cadangan"), want: dto.StatusBadge{Label: "Cadangan", Class: dto.BadgeClassNotPassed}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusBadgeFor(tc.status))
		})
	}
}

func TestBuildViewScenario(t *testing.T) {
	records := []models.Admission{
		admission("P1", "SMP", "Zonasi", strPtr("SMPN 1"), strPtr("lulus")),
		admission("P2", "SMP", "Zonasi", strPtr("SMPN 2"), nil),
		admission("P3", "SD", "Afirmasi", strPtr("SMPN 1"), strPtr("Tidak Lulus")),
	}
	colors := AssignColors(records, nil)

	rows, points := BuildView(ApplyFilter(records, []string{"SMP"}, []string{"Zonasi"}), colors)

	require.Len(t, rows, 2)
	require.Len(t, points, 2)

	assert.Equal(t, "P1", rows[0].RegistrationID)
	assert.Equal(t, dto.BadgeClassPassed, rows[0].StatusBadge.Class)
	assert.Equal(t, "P2", rows[1].RegistrationID)
	assert.Equal(t, dto.StatusBadge{Label: dto.NotPassedLabel, Class: dto.BadgeClassNotPassed}, rows[1].StatusBadge)

	assert.Equal(t, dto.MarkerCircleOutline, points[0].Shape)
	assert.Equal(t, DefaultPalette[0], points[0].Color)
	assert.Equal(t, dto.MarkerCross, points[1].Shape)
	assert.Equal(t, DefaultPalette[1], points[1].Color)
	assert.Equal(t, "P2", points[1].Popup.RegistrationID)
	assert.Nil(t, points[1].Popup.AdmissionStatus)
	assert.Equal(t, "SMPN 2", *points[1].Popup.DestinationSchool)
}

func TestBuildViewKeepsDuplicateRegistrations(t *testing.T) {
	records := []models.Admission{
		admission("P1", "SD", "Zonasi", nil, nil),
		admission("P1", "SD", "Zonasi", nil, strPtr("lulus")),
	}

	rows, points := BuildView(records, AssignColors(records, nil))

	require.Len(t, rows, 2)
	assert.Equal(t, FallbackColor, points[0].Color)
	assert.Equal(t, dto.MarkerCross, points[0].Shape)
	assert.Equal(t, dto.MarkerCircleOutline, points[1].Shape)
	assert.Equal(t, dto.ViewCounts{Total: 2, Passed: 1, NotPassed: 1}, countView(records))
}

func TestMapFeatureCollection(t *testing.T) {
	points := []dto.MapPoint{
		{Latitude: -5.14, Longitude: 119.42, Color: "#e53e3e", Shape: dto.MarkerCross, Popup: dto.MapPopup{RegistrationID: "P1"}},
		{Latitude: -5.10, Longitude: 119.40, Color: "#3182ce", Shape: dto.MarkerCircleOutline, Popup: dto.MapPopup{RegistrationID: "P2", AdmissionStatus: strPtr("Lulus")}},
	}

	fc := MapFeatureCollection(points)

	require.Len(t, fc.Features, 2)
	first := fc.Features[0]
	assert.Equal(t, "Point", first.Geometry.GeoJSONType())
	assert.Equal(t, "P1", first.Properties["pendaftaran_id"])
	assert.Nil(t, first.Properties["status_penerimaan"])
	assert.Equal(t, "cross", first.Properties["shape"])
	assert.Equal(t, "Lulus", fc.Features[1].Properties["status_penerimaan"])

	bound, ok := MapBounds(points)
	require.True(t, ok)
	assert.InDelta(t, -5.14, bound.Min.Lat(), 1e-9)
	assert.InDelta(t, 119.42, bound.Max.Lon(), 1e-9)

	_, ok = MapBounds(nil)
	assert.False(t, ok)
}

func TestLoadFilterBuildScenario(t *testing.T) {
	rows := rawRows(t, `[
		{"pendaftaran_id":"1","jenjang":"SD","jalur":"Zonasi","status_penerimaan":"Lulus","lintang":"-5,10","bujur":"119,40"},
		{"pendaftaran_id":"2","jenjang":"SMP","jalur":"Prestasi","status_penerimaan":"Tidak Lulus","lintang":"-5,20","bujur":"119,50"},
		{"pendaftaran_id":"3","jenjang":"SD","jalur":"Zonasi","lintang":"-5,30","bujur":"119,60"}
	]`)
	dataset, err := NewDatasetLoader(&fakeAdmissionSource{rows: rows}, "", nil, nil).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, dataset.Len())

	filtered := ApplyFilter(dataset.Records, []string{"SD"}, []string{"Zonasi"})
	tableRows, points := BuildView(filtered, AssignColors(dataset.Records, DefaultPalette))

	require.Len(t, tableRows, 2)
	require.Len(t, points, 2)
	assert.Equal(t, "1", tableRows[0].RegistrationID)
	assert.Equal(t, "3", tableRows[1].RegistrationID)
	for _, row := range tableRows {
		assert.Equal(t, "SD", row.Level)
		assert.Equal(t, "Zonasi", row.Track)
	}
	assert.Nil(t, tableRows[1].AdmissionStatus)

	assert.Equal(t, dto.MarkerCircleOutline, points[0].Shape)
	assert.Equal(t, dto.MarkerCross, points[1].Shape)
	assert.InDelta(t, -5.10, points[0].Latitude, 1e-9)
	assert.InDelta(t, 119.60, points[1].Longitude, 1e-9)
}
