package prescription

import (
	"time"

	"github.com/google/uuid"
)

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Prescription is signed when created and never edited afterwards.
type Prescription struct {
	ID           uuid.UUID    `json:"id"`
	DoctorID     uuid.UUID    `json:"doctor_id"`
	ClinicID     uuid.UUID    `json:"clinic_id"`
	PatientID    uuid.UUID    `json:"patient_id"`
	Medications  []Medication `json:"medications"`
	Instructions string       `json:"instructions,omitempty"`
	FollowUp     string       `json:"follow_up,omitempty"`
	SignedBy     string       `json:"signed_by"`
	SignedAt     time.Time    `json:"signed_at"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (p Prescription) OwnerID() uuid.UUID   { return p.DoctorID }
func (p Prescription) ClinicRef() uuid.UUID { return p.ClinicID }

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Delivery is what the outbound notifier receives.
type Delivery struct {
	Channel      Channel      `json:"channel"`
	Recipient    string       `json:"recipient"`
	PatientName  string       `json:"patient_name"`
	Prescription Prescription `json:"prescription"`
}

type Filter struct {
	PatientID uuid.UUID
	Limit     int
	Offset    int
}
