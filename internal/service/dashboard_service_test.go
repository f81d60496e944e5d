package service

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ppdb-map-api/internal/models"
	"github.com/noah-isme/ppdb-map-api/pkg/config"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
)

type stubCacheRepo struct {
	store map[string][]byte
	gets  int
	sets  int
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.gets++
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.sets++
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) Delete(_ context.Context, key string) error {
	delete(s.store, key)
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range s.store {
		if ok, _ := path.Match(pattern, key); ok {
			delete(s.store, key)
		}
	}
	return nil
}

func testDataset() *models.Dataset {
	return &models.Dataset{
		Source:   "test",
		Identity: "abc123",
		Records: []models.Admission{
			{RegistrationID: "P1", Level: "SMP", Track: "Zonasi", DestinationSchool: strPtr("SMPN 1"), Status: strPtr("Lulus"), Latitude: -5.14, Longitude: 119.42},
			{RegistrationID: "P2", Level: "SMP", Track: "Prestasi", DestinationSchool: strPtr("SMPN 2"), Latitude: -5.16, Longitude: 119.45},
			{RegistrationID: "P3", Level: "SD", Track: "Zonasi", Status: strPtr("tidak lulus"), Latitude: -5.12, Longitude: 119.41},
		},
		Dropped:  1,
		LoadedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func newTestDashboard(t *testing.T, cache *CacheService, defaultSelection string) *DashboardService {
	t.Helper()
	return NewDashboardService(DashboardServiceParams{
		Dataset: testDataset(),
		Cache:   cache,
		Logger:  zap.NewNop(),
		Config:  DashboardServiceConfig{DefaultSelection: defaultSelection},
	})
}

func TestDashboardServiceOptions(t *testing.T) {
	svc := newTestDashboard(t, nil, "")

	opts, err := svc.Options(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"SD", "SMP"}, opts.Levels)
	assert.Equal(t, []string{"Prestasi", "Zonasi"}, opts.Tracks)
	assert.Empty(t, opts.DefaultSelection.Levels)
	assert.Empty(t, opts.DefaultSelection.Tracks)
	require.Len(t, opts.SchoolLegend, 2)
	assert.Equal(t, "SMPN 1", opts.SchoolLegend[0].School)
	assert.Len(t, opts.ShapeLegend, 2)
	assert.Equal(t, FallbackColor, opts.FallbackColor)
	assert.Equal(t, 12, opts.Map.Zoom)
	assert.InDelta(t, -5.14, opts.Map.CenterLat, 1e-9)
	assert.Equal(t, 3, opts.Dataset.Records)
	assert.Equal(t, 1, opts.Dataset.Dropped)
	assert.Equal(t, "2024-06-01T08:00:00Z", opts.Dataset.LoadedAt)
}

func TestDashboardServiceDefaultSelectionAll(t *testing.T) {
	svc := newTestDashboard(t, nil, config.SelectionAll)

	sel, err := svc.DefaultSelection()
	require.NoError(t, err)
	assert.Equal(t, []string{"SD", "SMP"}, sel.Levels)
	assert.Equal(t, []string{"Prestasi", "Zonasi"}, sel.Tracks)

	view, _, err := svc.View(context.Background(), sel)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Counts.Total)
}

func TestDashboardServiceView(t *testing.T) {
	svc := newTestDashboard(t, nil, "")

	view, cached, err := svc.View(context.Background(), models.NewFilterSelection([]string{"SMP"}, []string{"Zonasi", "Prestasi"}))
	require.NoError(t, err)
	assert.False(t, cached)

	require.Len(t, view.Rows, 2)
	assert.Equal(t, "P1", view.Rows[0].RegistrationID)
	assert.Equal(t, "P2", view.Rows[1].RegistrationID)
	assert.Equal(t, 1, view.Counts.Passed)
	assert.Equal(t, 1, view.Counts.NotPassed)
	require.NotNil(t, view.Bounds)
	assert.InDelta(t, -5.16, view.Bounds.MinLat, 1e-9)
	assert.InDelta(t, 119.45, view.Bounds.MaxLon, 1e-9)
	assert.Empty(t, view.Hint)
}

func TestDashboardServiceEmptySelectionHint(t *testing.T) {
	svc := newTestDashboard(t, nil, "")

	view, _, err := svc.View(context.Background(), models.NewFilterSelection([]string{"SMP"}, nil))
	require.NoError(t, err)
	assert.Empty(t, view.Rows)
	assert.Empty(t, view.Points)
	assert.Nil(t, view.Bounds)
	assert.Equal(t, EmptyViewHint, view.Hint)
}

func TestDashboardServiceViewCaching(t *testing.T) {
	repo := &stubCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := newTestDashboard(t, cache, "")
	ctx := context.Background()

	first, hit, err := svc.View(ctx, models.NewFilterSelection([]string{"SMP", "SD"}, []string{"Zonasi"}))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, repo.sets)

	second, hit, err := svc.View(ctx, models.NewFilterSelection([]string{"SD", "SMP", "SD"}, []string{"Zonasi"}))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.sets)

	for key := range repo.store {
		assert.True(t, strings.HasPrefix(key, "ppdb:view:abc123:"))
	}

	_, hit, err = svc.View(ctx, models.NewFilterSelection([]string{"SD"}, []string{"Zonasi"}))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, repo.store, 2)
}

func TestDashboardServicePurgeStaleViews(t *testing.T) {
	repo := &stubCacheRepo{store: map[string][]byte{
		"ppdb:view:old:1":      []byte(`{}`),
		"ppdb:view:abc123:2":   []byte(`{}`),
		"ppdb:session:keep-me": []byte(`{}`),
		viewIdentityKey:        []byte(`"old"`),
	}}
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	svc := newTestDashboard(t, cache, "")
	ctx := context.Background()

	purged, err := svc.PurgeStaleViews(ctx)
	require.NoError(t, err)
	assert.True(t, purged)
	assert.NotContains(t, repo.store, "ppdb:view:old:1")
	assert.NotContains(t, repo.store, "ppdb:view:abc123:2")
	assert.Contains(t, repo.store, "ppdb:session:keep-me")
	assert.JSONEq(t, `"abc123"`, string(repo.store[viewIdentityKey]))

	_, _, err = svc.View(ctx, models.NewFilterSelection([]string{"SD"}, []string{"Zonasi"}))
	require.NoError(t, err)

	purged, err = svc.PurgeStaleViews(ctx)
	require.NoError(t, err)
	assert.False(t, purged)
	assert.Len(t, repo.store, 3)

	disabled, err := newTestDashboard(t, nil, "").PurgeStaleViews(ctx)
	require.NoError(t, err)
	assert.False(t, disabled)
}

func TestDashboardServiceRefusesWithoutDataset(t *testing.T) {
	loadErr := appErrors.Clone(appErrors.ErrDatasetNotFound, `admission dataset "missing.json" not found`)
	svc := NewDashboardService(DashboardServiceParams{LoadErr: loadErr})
	ctx := context.Background()

	assert.Equal(t, loadErr, svc.Ready())

	_, err := svc.Options(ctx)
	assert.Equal(t, loadErr, err)
	_, _, err = svc.View(ctx, models.NewFilterSelection([]string{"SD"}, []string{"Zonasi"}))
	assert.Equal(t, loadErr, err)
	_, err = svc.MapGeoJSON(ctx, models.FilterSelection{})
	assert.Equal(t, loadErr, err)
	_, err = svc.KnownValues(models.FieldLevel)
	assert.Equal(t, loadErr, err)

	missing := NewDashboardService(DashboardServiceParams{})
	assert.True(t, appErrors.Is(missing.Ready(), appErrors.ErrDatasetUnavailable))
}

func TestDashboardServiceKnownValues(t *testing.T) {
	svc := newTestDashboard(t, nil, "")

	levels, err := svc.KnownValues(models.FieldLevel)
	require.NoError(t, err)
	assert.Equal(t, []string{"SD", "SMP"}, levels)

	levels[0] = "mutated"
	again, err := svc.KnownValues(models.FieldLevel)
	require.NoError(t, err)
	assert.Equal(t, "SD", again[0])

	_, err = svc.KnownValues(models.FilterField("kota"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestDashboardServiceMapGeoJSON(t *testing.T) {
	svc := newTestDashboard(t, nil, "")

	fc, err := svc.MapGeoJSON(context.Background(), models.NewFilterSelection([]string{"SD"}, []string{"Zonasi"}))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "P3", fc.Features[0].Properties["pendaftaran_id"])
	assert.Equal(t, FallbackColor, fc.Features[0].Properties["color"])
}
