package voicelog

import (
	"time"

	"github.com/google/uuid"
)

type CallType string

const (
	CallInbound  CallType = "inbound"
	CallOutbound CallType = "outbound"
)

type CallStatus string

const (
	CallCompleted CallStatus = "completed"
	CallMissed    CallStatus = "missed"
	CallFailed    CallStatus = "failed"
)

type Action struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// Log is an append-only record of one voice agent call. ClinicID is taken
// from the patient when one is known; uuid.Nil means unattributed.
type Log struct {
	ID              uuid.UUID  `json:"id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	ClinicID        uuid.UUID  `json:"clinic_id"`
	PatientID       *uuid.UUID `json:"patient_id,omitempty"`
	CallID          string     `json:"call_id"`
	PhoneNumber     string     `json:"phone_number"`
	CallType        CallType   `json:"call_type"`
	Status          CallStatus `json:"status"`
	DurationSeconds int        `json:"duration_seconds"`
	Transcript      *string    `json:"transcript,omitempty"`
	ConfidenceScore *float64   `json:"confidence_score,omitempty"`
	Actions         []Action   `json:"actions"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (l Log) OwnerID() uuid.UUID   { return l.DoctorID }
func (l Log) ClinicRef() uuid.UUID { return l.ClinicID }

type Filter struct {
	Status   CallStatus
	CallType CallType
	Limit    int
	Offset   int
}

func (f Filter) Matches(l Log) bool {
	if f.Status != "" && l.Status != f.Status {
		return false
	}
	if f.CallType != "" && l.CallType != f.CallType {
		return false
	}
	return true
}
