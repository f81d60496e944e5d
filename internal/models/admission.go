package models

import (
	"strings"
	"time"
)

// StatusPassed is the admission status value that marks an applicant as accepted.
const StatusPassed = "lulus"

// RawAdmission is one admission row as it appears in the source, before coordinate normalisation.
type RawAdmission struct {
	RegistrationID    Cell `json:"pendaftaran_id" db:"pendaftaran_id"`
	Level             Cell `json:"jenjang" db:"jenjang"`
	Track             Cell `json:"jalur" db:"jalur"`
	DestinationSchool Cell `json:"nama_sekolah_tujuan" db:"nama_sekolah_tujuan"`
	Status            Cell `json:"status_penerimaan" db:"status_penerimaan"`
	Latitude          Cell `json:"lintang" db:"lintang"`
	Longitude         Cell `json:"bujur" db:"bujur"`
}

// Admission is a normalised admission record with finite coordinates.
type Admission struct {
	RegistrationID    string  `json:"pendaftaran_id"`
	Level             string  `json:"jenjang"`
	Track             string  `json:"jalur"`
	DestinationSchool *string `json:"nama_sekolah_tujuan"`
	Status            *string `json:"status_penerimaan"`
	Latitude          float64 `json:"lintang"`
	Longitude         float64 `json:"bujur"`
}

// Passed reports whether the admission status equals "lulus", ignoring case.
func (a Admission) Passed() bool {
	return IsPassedStatus(a.Status)
}

// IsPassedStatus reports whether status is "lulus" ignoring case. Surrounding
// whitespace is significant. Absent and empty values are not passed.
func IsPassedStatus(status *string) bool {
	if status == nil {
		return false
	}
	return strings.EqualFold(*status, StatusPassed)
}

// Dataset is the immutable record set shared by every dashboard session.
type Dataset struct {
	Source   string
	Identity string
	Records  []Admission
	Dropped  int
	LoadedAt time.Time
}

// Len returns the number of retained records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}
