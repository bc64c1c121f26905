package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

type ErrorResponse struct {
	Error                    string     `json:"error"`
	Details                  string     `json:"details,omitempty"`
	Field                    string     `json:"field,omitempty"`
	ConflictingAppointmentID *uuid.UUID `json:"conflicting_appointment_id,omitempty"`
}

type MeResponse struct {
	Kind        string          `json:"kind"`
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Plan        string          `json:"plan,omitempty"`
	Permissions []string        `json:"permissions,omitempty"`
	SuperAdmin  bool            `json:"super_admin,omitempty"`
	Scope       string          `json:"scope"`
	Clinics     []clinic.Clinic `json:"clinics"`
}

type DoctorResponse struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Plan             string    `json:"plan"`
	AppointmentsUsed int       `json:"appointments_used"`
	VoiceMinutesUsed int       `json:"voice_minutes_used"`
	CreatedAt        time.Time `json:"created_at"`
}

type CreateClinicRequest struct {
	Name           string                  `json:"name"`
	AddressLine    string                  `json:"address_line"`
	City           string                  `json:"city"`
	State          string                  `json:"state"`
	PostalCode     string                  `json:"postal_code"`
	Phone          string                  `json:"phone"`
	OperatingHours map[string]clinic.Hours `json:"operating_hours"`
}

type CreateAppointmentRequest struct {
	ClinicID  uuid.UUID           `json:"clinic_id"`
	PatientID uuid.UUID           `json:"patient_id"`
	StartTime time.Time           `json:"start_time"`
	EndTime   *time.Time          `json:"end_time,omitempty"`
	Channel   appointment.Channel `json:"channel,omitempty"`
	Notes     string              `json:"notes,omitempty"`
}

func (req CreateAppointmentRequest) candidate() appointment.Candidate {
	c := appointment.Candidate{
		ClinicID:  req.ClinicID,
		PatientID: req.PatientID,
		StartTime: req.StartTime,
		Channel:   req.Channel,
		Notes:     req.Notes,
	}
	if req.EndTime != nil {
		c.EndTime = *req.EndTime
	}
	return c
}

type CheckResponse struct {
	Conflict                 bool       `json:"conflict"`
	ConflictingAppointmentID *uuid.UUID `json:"conflicting_appointment_id,omitempty"`
}

type DefaultEndResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type RescheduleRequest struct {
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type CreatePrescriptionRequest struct {
	PatientID    uuid.UUID                 `json:"patient_id"`
	Medications  []prescription.Medication `json:"medications"`
	Instructions string                    `json:"instructions,omitempty"`
	FollowUp     string                    `json:"follow_up,omitempty"`
}

type SendPrescriptionRequest struct {
	Channel prescription.Channel `json:"channel"`
}

type ListResponse[T any] struct {
	Scope string `json:"scope"`
	Items []T    `json:"items"`
}

func listOf[T any](scope clinic.Scope, items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Scope: scope.String(), Items: items}
}
