package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusBooked    Status = "booked"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled || s == StatusNoShow
}

func ParseStatus(raw string) (Status, bool) {
	switch s := Status(raw); s {
	case StatusBooked, StatusComplete, StatusCancelled, StatusNoShow:
		return s, true
	}
	return "", false
}

type Channel string

const (
	ChannelVoice  Channel = "voice"
	ChannelWeb    Channel = "web"
	ChannelManual Channel = "manual"
)

func (c Channel) Valid() bool {
	return c == ChannelVoice || c == ChannelWeb || c == ChannelManual
}

type Appointment struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	ClinicID  uuid.UUID `json:"clinic_id"`
	PatientID uuid.UUID `json:"patient_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    Status    `json:"status"`
	Channel   Channel   `json:"channel"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a Appointment) OwnerID() uuid.UUID   { return a.DoctorID }
func (a Appointment) ClinicRef() uuid.UUID { return a.ClinicID }

// Candidate is a proposed booking. ID is set when an existing appointment is
// being moved, so it never conflicts with itself.
type Candidate struct {
	ID        uuid.UUID `json:"id,omitempty"`
	ClinicID  uuid.UUID `json:"clinic_id"`
	PatientID uuid.UUID `json:"patient_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Channel   Channel   `json:"channel,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// ListFilter narrows a visibility-scoped listing. Zero values are ignored.
type ListFilter struct {
	Status    Status
	PatientID uuid.UUID
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

func (f ListFilter) Matches(a Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
		return false
	}
	if !f.From.IsZero() && a.EndTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !a.StartTime.Before(f.To) {
		return false
	}
	return true
}
