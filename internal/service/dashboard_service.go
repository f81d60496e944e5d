package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/noah-isme/ppdb-map-api/internal/dto"
	"github.com/noah-isme/ppdb-map-api/internal/models"
	"github.com/noah-isme/ppdb-map-api/pkg/config"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
)

const (
	viewKeyPrefix   = "ppdb:view:"
	viewIdentityKey = "ppdb:view-identity"
)

// EmptyViewHint is returned with views that match nothing.
const EmptyViewHint = "Centang filter jenjang dan jalur untuk menampilkan data."

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	DefaultSelection string
	CacheTTL         time.Duration
	Palette          []string
	Map              dto.MapSettings
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Dataset *models.Dataset
	LoadErr error
	Cache   *CacheService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  DashboardServiceConfig
}

// DashboardService serves filtered views over the immutable dataset. The dataset,
// colour assignment and option lists are computed once and shared read-only; filter
// selections always arrive from the caller.
type DashboardService struct {
	dataset *models.Dataset
	loadErr error
	colors  *ColorAssignment
	levels  []string
	tracks  []string
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService. When loadErr is set, or the dataset
// is missing, every operation reports that error instead of serving partial data.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.DefaultSelection != config.SelectionAll {
		cfg.DefaultSelection = config.SelectionNone
	}
	if cfg.Map.Zoom <= 0 {
		cfg.Map = dto.MapSettings{CenterLat: -5.14, CenterLon: 119.42, Zoom: 12}
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DashboardService{
		loadErr: params.LoadErr,
		cache:   params.Cache,
		metrics: params.Metrics,
		logger:  logger,
		cfg:     cfg,
	}
	if svc.loadErr == nil && params.Dataset == nil {
		svc.loadErr = appErrors.ErrDatasetUnavailable
	}
	if svc.loadErr == nil {
		svc.dataset = params.Dataset
		svc.colors = AssignColors(params.Dataset.Records, cfg.Palette)
		svc.levels = DistinctValues(params.Dataset.Records, models.FieldLevel)
		svc.tracks = DistinctValues(params.Dataset.Records, models.FieldTrack)
	}
	return svc
}

// Ready returns the dataset load error, or nil when views can be served.
func (s *DashboardService) Ready() error {
	return s.loadErr
}

// KnownValues lists every distinct value of field in the full dataset.
func (s *DashboardService) KnownValues(field models.FilterField) ([]string, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	switch field {
	case models.FieldLevel:
		return append([]string(nil), s.levels...), nil
	case models.FieldTrack:
		return append([]string(nil), s.tracks...), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown filter field %q", field))
	}
}

// DefaultSelection is the selection new sessions start with.
func (s *DashboardService) DefaultSelection() (models.FilterSelection, error) {
	if err := s.Ready(); err != nil {
		return models.FilterSelection{}, err
	}
	if s.cfg.DefaultSelection == config.SelectionAll {
		return models.NewFilterSelection(s.levels, s.tracks), nil
	}
	return models.NewFilterSelection(nil, nil), nil
}

// Options returns the filter option lists, legends and dataset stats.
func (s *DashboardService) Options(ctx context.Context) (*dto.DashboardOptions, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	def, _ := s.DefaultSelection()
	return &dto.DashboardOptions{
		Levels:           append([]string{}, s.levels...),
		Tracks:           append([]string{}, s.tracks...),
		DefaultSelection: def,
		SchoolLegend:     s.colors.Legend(),
		ShapeLegend: []dto.ShapeLegendEntry{
			{Shape: dto.MarkerCircleOutline, Label: "Lulus"},
			{Shape: dto.MarkerCross, Label: dto.NotPassedLabel},
		},
		FallbackColor: FallbackColor,
		Map:           s.cfg.Map,
		Dataset: dto.DatasetStats{
			Source:   s.dataset.Source,
			Identity: s.dataset.Identity,
			Records:  s.dataset.Len(),
			Dropped:  s.dataset.Dropped,
			LoadedAt: s.dataset.LoadedAt.Format(time.RFC3339),
		},
	}, nil
}

// View filters the dataset by selection and builds the table and map projections.
// The boolean reports whether the view came from cache.
func (s *DashboardService) View(ctx context.Context, selection models.FilterSelection) (*dto.DashboardView, bool, error) {
	if err := s.Ready(); err != nil {
		return nil, false, err
	}
	selection = models.NewFilterSelection(selection.Levels, selection.Tracks)

	cacheKey, err := s.viewCacheKey(selection)
	if err != nil {
		return nil, false, err
	}
	if s.cache.Enabled() {
		var cached dto.DashboardView
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			s.logger.Warn("view cache read failed, rebuilding", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	view := s.buildView(selection)
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, view, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("view cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return view, false, nil
}

// PurgeStaleViews drops cached views left behind by a different dataset. The identity
// the views were built from is recorded under its own key; when it is missing or differs
// from the loaded dataset the whole view namespace is purged. It reports whether a
// purge ran.
func (s *DashboardService) PurgeStaleViews(ctx context.Context) (bool, error) {
	if s.Ready() != nil || !s.cache.Enabled() {
		return false, nil
	}
	var previous string
	hit, err := s.cache.Get(ctx, viewIdentityKey, &previous)
	if err != nil {
		return false, err
	}
	if hit && previous == s.dataset.Identity {
		return false, nil
	}
	if err := s.cache.Purge(ctx, viewKeyPrefix+"*"); err != nil {
		return false, err
	}
	if err := s.cache.Set(ctx, viewIdentityKey, s.dataset.Identity, s.cfg.CacheTTL); err != nil {
		return true, err
	}
	s.logger.Info("purged stale dashboard views",
		zap.String("previous_identity", previous),
		zap.String("identity", s.dataset.Identity),
	)
	return true, nil
}

// MapGeoJSON returns the map points of a selection as a GeoJSON feature collection.
func (s *DashboardService) MapGeoJSON(ctx context.Context, selection models.FilterSelection) (*geojson.FeatureCollection, error) {
	view, _, err := s.View(ctx, selection)
	if err != nil {
		return nil, err
	}
	return MapFeatureCollection(view.Points), nil
}

// TableRows returns only the tabular projection of a selection.
func (s *DashboardService) TableRows(ctx context.Context, selection models.FilterSelection) ([]dto.TableRow, error) {
	view, _, err := s.View(ctx, selection)
	if err != nil {
		return nil, err
	}
	return view.Rows, nil
}

func (s *DashboardService) buildView(selection models.FilterSelection) *dto.DashboardView {
	start := time.Now()
	filtered := ApplySelection(s.dataset.Records, selection)
	rows, points := BuildView(filtered, s.colors)
	view := &dto.DashboardView{
		Selection: selection,
		Counts:    countView(filtered),
		Rows:      rows,
		Points:    points,
	}
	if bound, ok := MapBounds(points); ok {
		view.Bounds = &dto.BoundingBox{
			MinLat: bound.Min.Lat(),
			MinLon: bound.Min.Lon(),
			MaxLat: bound.Max.Lat(),
			MaxLon: bound.Max.Lon(),
		}
	} else {
		view.Hint = EmptyViewHint
	}
	s.metrics.ObserveView(len(filtered), time.Since(start))
	return view
}

// viewCacheKey hashes the dataset identity together with the normalised selection.
func (s *DashboardService) viewCacheKey(selection models.FilterSelection) (string, error) {
	payload, err := json.Marshal(selection)
	if err != nil {
		return "", fmt.Errorf("marshal selection: %w", err)
	}
	h := xxhash.New()
	_, _ = h.WriteString(s.dataset.Identity)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(payload)
	return viewKeyPrefix + s.dataset.Identity + ":" + strconv.FormatUint(h.Sum64(), 16), nil
}
