package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/noah-isme/ppdb-map-api/internal/models"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
)

// AdmissionFileRepository reads admission rows from a JSON array on disk.
type AdmissionFileRepository struct {
	path string
}

// NewAdmissionFileRepository constructs a file-backed admission source.
func NewAdmissionFileRepository(path string) *AdmissionFileRepository {
	return &AdmissionFileRepository{path: path}
}

// Name identifies the source in logs and dataset stats.
func (r *AdmissionFileRepository) Name() string {
	return "file:" + r.path
}

// Load decodes every row of the file. It never writes to disk.
func (r *AdmissionFileRepository) Load(ctx context.Context) ([]models.RawAdmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Wrap(err, appErrors.ErrDatasetNotFound.Code, appErrors.ErrDatasetNotFound.Status,
				fmt.Sprintf("admission dataset not found at %q", r.path))
		}
		return nil, fmt.Errorf("read admission dataset %s: %w", r.path, err)
	}
	return DecodeAdmissions(payload)
}

// DecodeAdmissions parses a JSON array of admission objects.
func DecodeAdmissions(payload []byte) ([]models.RawAdmission, error) {
	var rows []models.RawAdmission
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDatasetMalformed.Code, appErrors.ErrDatasetMalformed.Status,
			"admission dataset must be a JSON array of objects")
	}
	if rows == nil {
		return nil, appErrors.Clone(appErrors.ErrDatasetMalformed, "admission dataset must be a JSON array of objects")
	}
	return rows, nil
}
