package clinic

import (
	"time"

	"github.com/google/uuid"
)

// Hours is an opening window in "HH:MM" local clinic time.
type Hours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type Clinic struct {
	ID             uuid.UUID        `json:"id"`
	OwnerDoctorID  uuid.UUID        `json:"owner_doctor_id"`
	Name           string           `json:"name"`
	AddressLine    string           `json:"address_line,omitempty"`
	City           string           `json:"city,omitempty"`
	State          string           `json:"state,omitempty"`
	PostalCode     string           `json:"postal_code,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	OperatingHours map[string]Hours `json:"operating_hours,omitempty"` // keyed by lower-case weekday, e.g. "monday"
	CreatedAt      time.Time        `json:"created_at"`
}
