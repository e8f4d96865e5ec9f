package entities

import (
	"fmt"
	"strings"
	"time"
)

// Scope identifies one walk-in queue: a clinic, a doctor and a calendar day.
// Every subscription, queue position and order pointer is bounded by a scope.
type Scope struct {
	ClinicID string `json:"clinic_id"`
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
}

// NewScope creates a scope for the given clinic, doctor and day.
func NewScope(clinicID, doctorID string, day time.Time) Scope {
	return Scope{
		ClinicID: clinicID,
		DoctorID: doctorID,
		Date:     FormatDate(day),
	}
}

// Key returns the canonical scope key used for channel names and session ids.
func (s Scope) Key() string {
	return fmt.Sprintf("%s:%s:%s", s.ClinicID, s.DoctorID, s.Date)
}

// Validate checks that all scope components are present.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.ClinicID) == "" {
		return fmt.Errorf("scope clinic id is required")
	}
	if strings.TrimSpace(s.DoctorID) == "" {
		return fmt.Errorf("scope doctor id is required")
	}
	if strings.TrimSpace(s.Date) == "" {
		return fmt.Errorf("scope date is required")
	}
	return nil
}

// FormatDate renders a day the way queue documents store it.
func FormatDate(day time.Time) string {
	return fmt.Sprintf("%d-%d-%d", day.Year(), int(day.Month()), day.Day())
}
