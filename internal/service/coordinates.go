package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/ppdb-map-api/internal/models"
)

var errCoordinateMissing = errors.New("coordinate missing")

// CoordinateParseError describes one record whose position could not be read.
type CoordinateParseError struct {
	Index          int
	RegistrationID string
	Field          string
	Raw            string
	Err            error
}

func (e *CoordinateParseError) Error() string {
	return fmt.Sprintf("record %d (pendaftaran_id %q): %s %q: %v", e.Index, e.RegistrationID, e.Field, e.Raw, e.Err)
}

func (e *CoordinateParseError) Unwrap() error {
	return e.Err
}

// ParseCoordinate normalises a comma decimal separator to a dot and parses the result.
// Missing, blank and non-finite values are rejected.
func ParseCoordinate(cell models.Cell) (float64, error) {
	if !cell.Valid {
		return 0, errCoordinateMissing
	}
	raw := strings.TrimSpace(cell.String)
	if raw == "" {
		return 0, errCoordinateMissing
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("coordinate %q is not finite", raw)
	}
	return value, nil
}
