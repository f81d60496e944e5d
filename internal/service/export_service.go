package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ppdb-map-api/internal/dto"
	"github.com/noah-isme/ppdb-map-api/internal/models"
	appErrors "github.com/noah-isme/ppdb-map-api/pkg/errors"
	"github.com/noah-isme/ppdb-map-api/pkg/export"
)

var tableHeaders = []string{"jenjang", "jalur", "nama_sekolah_tujuan", "pendaftaran_id", "status_penerimaan"}

type tableRowSource interface {
	TableRows(ctx context.Context, selection models.FilterSelection) ([]dto.TableRow, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

// ExportFile is a rendered table download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders the table projection of a selection as CSV or PDF.
type ExportService struct {
	rows      tableRowSource
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
	title     string
	enabled   bool
}

// NewExportService constructs an export service.
func NewExportService(rows tableRowSource, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, logger *zap.Logger, title string, enabled bool) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if title == "" {
		title = "Data PPDB"
	}
	return &ExportService{rows: rows, csv: csv, pdf: pdf, validator: validate, logger: logger, title: title, enabled: enabled}
}

// Export renders the rows matching req.Selection.
func (s *ExportService) Export(ctx context.Context, req dto.ExportRequest) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.ErrExportsDisabled
	}
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	rows, err := s.rows.TableRows(ctx, req.Selection)
	if err != nil {
		return nil, err
	}
	table := exportTable(rows)

	file := &ExportFile{Filename: "ppdb." + req.Format, Rows: len(rows)}
	switch req.Format {
	case "csv":
		file.ContentType = "text/csv; charset=utf-8"
		file.Body, err = s.csv.Render(table)
	case "pdf":
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(table, s.title)
	}
	if err != nil {
		s.logger.Error("table export failed", zap.String("format", req.Format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render export")
	}
	return file, nil
}

func exportTable(rows []dto.TableRow) export.Table {
	table := export.Table{Columns: tableHeaders, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.Level,
			row.Track,
			derefOrEmpty(row.DestinationSchool),
			row.RegistrationID,
			derefOrEmpty(row.AdmissionStatus),
		})
	}
	return table
}

func derefOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

