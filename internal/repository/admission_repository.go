package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/ppdb-map-api/internal/models"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
)

const pqUndefinedTable = "42P01"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// AdmissionRepository reads admission rows from a PostgreSQL table shaped like the JSON export.
type AdmissionRepository struct {
	db    *sqlx.DB
	table string
}

// NewAdmissionRepository constructs a PostgreSQL admission source.
func NewAdmissionRepository(db *sqlx.DB, table string) *AdmissionRepository {
	if table == "" {
		table = "ppdb_admissions"
	}
	return &AdmissionRepository{db: db, table: table}
}

// Name identifies the source in logs and dataset stats.
func (r *AdmissionRepository) Name() string {
	return "postgres:" + r.table
}

// Load returns all admission rows in a stable order.
func (r *AdmissionRepository) Load(ctx context.Context) ([]models.RawAdmission, error) {
	if !tableNamePattern.MatchString(r.table) {
		return nil, appErrors.Clone(appErrors.ErrDatasetMalformed, fmt.Sprintf("invalid admission table name %q", r.table))
	}
	query := fmt.Sprintf(`SELECT pendaftaran_id, jenjang, jalur, nama_sekolah_tujuan, status_penerimaan, lintang, bujur
        FROM %s ORDER BY pendaftaran_id, jenjang, jalur`, r.table)

	var rows []models.RawAdmission
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUndefinedTable {
			return nil, appErrors.Wrap(err, appErrors.ErrDatasetNotFound.Code, appErrors.ErrDatasetNotFound.Status,
				fmt.Sprintf("admission table %q not found", r.table))
		}
		return nil, fmt.Errorf("load admissions: %w", err)
	}
	if rows == nil {
		rows = []models.RawAdmission{}
	}
	return rows, nil
}
