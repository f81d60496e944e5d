package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/ppdb-map-api/internal/models"
	"github.com/noah-isme/ppdb-map-api/pkg/config"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
)

// AdmissionSource provides raw admission rows.
type AdmissionSource interface {
	Name() string
	Load(ctx context.Context) ([]models.RawAdmission, error)
}

// DatasetLoader turns raw rows into the immutable Dataset.
type DatasetLoader struct {
	source  AdmissionSource
	policy  string
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewDatasetLoader constructs a loader. policy is config.CoordinatePolicyDrop or config.CoordinatePolicyFail.
func NewDatasetLoader(source AdmissionSource, policy string, metrics *MetricsService, logger *zap.Logger) *DatasetLoader {
	if policy != config.CoordinatePolicyFail {
		policy = config.CoordinatePolicyDrop
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetLoader{source: source, policy: policy, metrics: metrics, logger: logger, now: time.Now}
}

// Load reads the source once and normalises every row. It has no side effects beyond
// reading, so repeated calls over the same source produce the same Identity.
func (l *DatasetLoader) Load(ctx context.Context) (*models.Dataset, error) {
	if l.source == nil {
		return nil, appErrors.Clone(appErrors.ErrDatasetUnavailable, "no admission source configured")
	}
	start := time.Now()
	dataset, err := l.load(ctx)
	records, dropped := 0, 0
	if dataset != nil {
		records, dropped = len(dataset.Records), dataset.Dropped
	}
	l.metrics.ObserveDatasetLoad(l.source.Name(), records, dropped, time.Since(start), err)
	if err != nil {
		l.logger.Error("admission dataset load failed", zap.String("source", l.source.Name()), zap.Error(err))
		return nil, err
	}
	l.logger.Info("admission dataset loaded",
		zap.String("source", dataset.Source),
		zap.Int("records", records),
		zap.Int("dropped", dropped),
		zap.String("identity", dataset.Identity),
	)
	return dataset, nil
}

func (l *DatasetLoader) load(ctx context.Context) (*models.Dataset, error) {
	rows, err := l.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkRequiredFields(rows); err != nil {
		return nil, err
	}

	records, dropped, err := l.normalise(rows)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrDatasetMalformed, "no record has parseable coordinates")
	}

	identity, err := datasetIdentity(records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "hash admission dataset")
	}

	return &models.Dataset{
		Source:   l.source.Name(),
		Identity: identity,
		Records:  records,
		Dropped:  len(dropped),
		LoadedAt: l.now().UTC(),
	}, nil
}

func (l *DatasetLoader) normalise(rows []models.RawAdmission) ([]models.Admission, []*CoordinateParseError, error) {
	records := make([]models.Admission, 0, len(rows))
	var dropped []*CoordinateParseError
	for i, row := range rows {
		record, perr := normaliseRow(i, row)
		if perr != nil {
			if l.policy == config.CoordinatePolicyFail {
				return nil, nil, appErrors.Wrap(perr, appErrors.ErrDatasetMalformed.Code, appErrors.ErrDatasetMalformed.Status,
					fmt.Sprintf("invalid coordinates in record %d", i))
			}
			l.logger.Debug("dropping admission record", zap.Error(perr))
			dropped = append(dropped, perr)
			continue
		}
		records = append(records, record)
	}
	if len(dropped) > 0 {
		l.logger.Warn("dropped admission records with unparseable coordinates",
			zap.Int("dropped", len(dropped)),
			zap.Int("total", len(rows)),
		)
	}
	return records, dropped, nil
}

func normaliseRow(index int, row models.RawAdmission) (models.Admission, *CoordinateParseError) {
	lat, err := ParseCoordinate(row.Latitude)
	if err != nil {
		return models.Admission{}, &CoordinateParseError{Index: index, RegistrationID: row.RegistrationID.String, Field: "lintang", Raw: row.Latitude.String, Err: err}
	}
	lon, err := ParseCoordinate(row.Longitude)
	if err != nil {
		return models.Admission{}, &CoordinateParseError{Index: index, RegistrationID: row.RegistrationID.String, Field: "bujur", Raw: row.Longitude.String, Err: err}
	}
	return models.Admission{
		RegistrationID:    row.RegistrationID.String,
		Level:             row.Level.String,
		Track:             row.Track.String,
		DestinationSchool: row.DestinationSchool.Ptr(),
		Status:            row.Status.Ptr(),
		Latitude:          lat,
		Longitude:         lon,
	}, nil
}

// checkRequiredFields rejects datasets where a required column never carries a value.
// An empty dataset is accepted and renders as an empty dashboard.
func checkRequiredFields(rows []models.RawAdmission) error {
	if len(rows) == 0 {
		return nil
	}
	required := []struct {
		name string
		get  func(models.RawAdmission) models.Cell
	}{
		{"pendaftaran_id", func(r models.RawAdmission) models.Cell { return r.RegistrationID }},
		{"jenjang", func(r models.RawAdmission) models.Cell { return r.Level }},
		{"jalur", func(r models.RawAdmission) models.Cell { return r.Track }},
		{"lintang", func(r models.RawAdmission) models.Cell { return r.Latitude }},
		{"bujur", func(r models.RawAdmission) models.Cell { return r.Longitude }},
	}
	for _, field := range required {
		present := false
		for _, row := range rows {
			if field.get(row).Valid {
				present = true
				break
			}
		}
		if !present {
			return appErrors.Clone(appErrors.ErrDatasetMalformed,
				fmt.Sprintf("required field %q is absent from every record", field.name))
		}
	}
	return nil
}

func datasetIdentity(records []models.Admission) (string, error) {
	h := xxhash.New()
	enc := json.NewEncoder(h)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return "", err
		}
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}
