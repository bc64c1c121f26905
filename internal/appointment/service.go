package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/lock"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/visibility"
)

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled   = "APPOINTMENT_RESCHEDULED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
)

// ErrClinicBusy means another admission for the same clinic holds the lock.
var ErrClinicBusy = errors.New("clinic is currently being booked, please retry")

var errNotOverdue = errors.New("appointment no longer overdue")

type Clinics interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
}

type Patients interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	clinics  Clinics
	patients Patients
	locker   lock.Locker
	metrics  *metrics.Collector
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, clinics Clinics, patients Patients, locker lock.Locker, m *metrics.Collector, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		clinics:  clinics,
		patients: patients,
		locker:   locker,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Admit books a candidate appointment. The conflict check is repeated under
// the per-clinic lock so two concurrent admissions for overlapping slots
// cannot both succeed.
func (s *Service) Admit(ctx context.Context, a actor.Actor, c Candidate) (*Appointment, error) {
	appt, err := s.admit(ctx, a, c)
	s.metrics.RecordAdmission(outcome(err))
	return appt, err
}

func (s *Service) admit(ctx context.Context, a actor.Actor, c Candidate) (*Appointment, error) {
	if a == nil {
		return nil, fmt.Errorf("admit: %w", apperr.ErrForbidden)
	}
	c.ID = uuid.Nil

	cl, err := s.loadClinic(ctx, a, c.ClinicID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPatient(ctx, c.PatientID, cl.ID); err != nil {
		return nil, err
	}
	if c.EndTime, err = endOrDefault(c.StartTime, c.EndTime); err != nil {
		return nil, err
	}
	if err := validateInterval(c.StartTime, c.EndTime); err != nil {
		return nil, err
	}

	var created *Appointment
	err = s.withClinicLock(ctx, cl.ID, func(lockCtx context.Context) error {
		existing, err := s.repo.ListBookedInWindow(lockCtx, cl.ID, c.StartTime, c.EndTime)
		if err != nil {
			return apperr.Storage("check existing bookings", err)
		}

		appt, err := Admit(a, cl, c, existing, s.now())
		if err != nil {
			return err
		}

		if err := s.repo.Insert(lockCtx, appt); err != nil {
			if errors.Is(err, ErrOverlap) {
				return &apperr.ConflictError{Reason: "overlapping booking"}
			}
			return apperr.Storage("insert appointment", err)
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"clinic_id":  appt.ClinicID.String(),
			"patient_id": appt.PatientID.String(),
			"start_time": appt.StartTime,
			"end_time":   appt.EndTime,
			"channel":    appt.Channel,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("clinic_id", created.ClinicID.String()).
		Time("start_time", created.StartTime).
		Msg("appointment booked")
	return created, nil
}

// Reschedule moves a booked appointment to a new interval under the same
// lock and re-check as Admit. A zero end derives the default duration.
func (s *Service) Reschedule(ctx context.Context, a actor.Actor, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	appt, err := s.reschedule(ctx, a, id, start, end)
	s.metrics.RecordAdmission(outcome(err))
	return appt, err
}

func (s *Service) reschedule(ctx context.Context, a actor.Actor, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	current, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusBooked {
		return nil, &apperr.TransitionError{From: string(current.Status), To: string(StatusBooked), Reason: "not in booked state"}
	}
	if end, err = endOrDefault(start, end); err != nil {
		return nil, err
	}
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}

	c := Candidate{
		ID:        current.ID,
		ClinicID:  current.ClinicID,
		PatientID: current.PatientID,
		StartTime: start,
		EndTime:   end,
		Channel:   current.Channel,
		Notes:     current.Notes,
	}

	var updated *Appointment
	err = s.withClinicLock(ctx, current.ClinicID, func(lockCtx context.Context) error {
		existing, err := s.repo.ListBookedInWindow(lockCtx, c.ClinicID, start, end)
		if err != nil {
			return apperr.Storage("check existing bookings", err)
		}
		if hit := FindConflict(c, existing); hit != nil {
			return &apperr.ConflictError{Reason: "overlapping booking", ConflictingAppointmentID: hit.ID}
		}

		appt, err := s.repo.UpdateSchedule(lockCtx, current.ID, start, end)
		if err != nil {
			switch {
			case errors.Is(err, ErrOverlap):
				return &apperr.ConflictError{Reason: "overlapping booking"}
			case errors.Is(err, ErrAppointmentNotFound):
				return &apperr.TransitionError{From: "unknown", To: string(StatusBooked), Reason: "appointment changed concurrently"}
			}
			return apperr.Storage("reschedule appointment", err)
		}
		updated = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentRescheduled, map[string]any{
			"from_start": current.StartTime,
			"from_end":   current.EndTime,
			"start_time": start,
			"end_time":   end,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeStatus applies Transition and persists it with a compare-and-set on
// the previous status.
func (s *Service) ChangeStatus(ctx context.Context, a actor.Actor, id uuid.UUID, to Status) (*Appointment, error) {
	current, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, *current, to, "api")
}

func (s *Service) transition(ctx context.Context, current Appointment, to Status, source string) (*Appointment, error) {
	next, err := Transition(current, to, s.now())
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, current.ID, current.Status, next.Status)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, &apperr.TransitionError{From: string(current.Status), To: string(to), Reason: "appointment changed concurrently"}
		}
		return nil, apperr.Storage("update appointment status", err)
	}

	s.metrics.RecordTransition(string(to), source)
	s.logEvent(ctx, updated.ID, EventAppointmentStatusChanged, map[string]any{
		"from":   current.Status,
		"to":     to,
		"source": source,
	})
	return updated, nil
}

// Get returns an appointment visible to a. Rows of other doctors are
// reported as not found.
func (s *Service) Get(ctx context.Context, a actor.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, apperr.NotFound("appointment", id)
		}
		return nil, apperr.Storage("load appointment", err)
	}
	if !visibility.CanSee(a, appt) {
		return nil, apperr.NotFound("appointment", id)
	}
	return appt, nil
}

// List returns the appointments visible to a under scope, ordered by start
// time. Read failures yield an empty list.
func (s *Service) List(ctx context.Context, a actor.Actor, scope clinic.Scope, f ListFilter) []Appointment {
	crit := visibility.CriteriaFor(a, scope)
	if crit.Deny {
		return nil
	}
	if f.Limit <= 0 {
		f.Limit = 100
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	appts, err := s.repo.List(ctx, crit, f)
	if err != nil {
		s.logger.Warn().Err(err).Str("scope", scope.String()).Msg("list appointments failed, returning empty list")
		return nil
	}
	return appts
}

// Check is the read-only conflict preview used by booking forms. It never
// takes the lock, so a clear result is advisory.
func (s *Service) Check(ctx context.Context, a actor.Actor, c Candidate) (*Appointment, error) {
	cl, err := s.loadClinic(ctx, a, c.ClinicID)
	if err != nil {
		return nil, err
	}
	if c.EndTime, err = endOrDefault(c.StartTime, c.EndTime); err != nil {
		return nil, err
	}
	if err := validateInterval(c.StartTime, c.EndTime); err != nil {
		return nil, err
	}
	existing, err := s.repo.ListBookedInWindow(ctx, cl.ID, c.StartTime, c.EndTime)
	if err != nil {
		return nil, apperr.Storage("check existing bookings", err)
	}
	return FindConflict(c, existing), nil
}

// SweepNoShows moves booked appointments that ended before cutoff to
// no_show. Each move runs under the clinic lock and re-reads the row, so an
// appointment rescheduled since the listing is left alone. Clinics whose
// lock is busy are skipped until the next sweep. It returns how many were
// moved.
func (s *Service) SweepNoShows(ctx context.Context, cutoff time.Time) (int, error) {
	overdue, err := s.repo.FindOverdueBooked(ctx, cutoff, 500)
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	moved := 0
	for _, appt := range overdue {
		err := s.withClinicLock(ctx, appt.ClinicID, func(ctx context.Context) error {
			current, err := s.repo.GetByID(ctx, appt.ID)
			if err != nil {
				return err
			}
			if current.Status != StatusBooked || !current.EndTime.Before(cutoff) {
				return errNotOverdue
			}
			_, err = s.transition(ctx, *current, StatusNoShow, "worker")
			return err
		})

		var terr *apperr.TransitionError
		switch {
		case err == nil:
			moved++
		case errors.Is(err, errNotOverdue), errors.Is(err, ErrAppointmentNotFound), errors.As(err, &terr):
		case errors.Is(err, ErrClinicBusy):
			s.logger.Debug().Str("clinic_id", appt.ClinicID.String()).Msg("clinic busy, no-show deferred")
		default:
			s.logger.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to mark no-show")
		}
	}
	return moved, nil
}

func (s *Service) loadClinic(ctx context.Context, a actor.Actor, id uuid.UUID) (*clinic.Clinic, error) {
	if id == uuid.Nil {
		return nil, apperr.Validation("clinic_id", "is required")
	}
	cl, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, clinic.ErrClinicNotFound) {
			return nil, apperr.NotFound("clinic", id)
		}
		return nil, apperr.Storage("load clinic", err)
	}
	if !clinic.CanActOn(a, cl) {
		return nil, apperr.NotFound("clinic", id)
	}
	return cl, nil
}

func (s *Service) checkPatient(ctx context.Context, patientID, clinicID uuid.UUID) error {
	if patientID == uuid.Nil {
		return apperr.Validation("patient_id", "is required")
	}
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			return apperr.NotFound("patient", patientID)
		}
		return apperr.Storage("load patient", err)
	}
	if p.ClinicID != clinicID {
		return apperr.NotFound("patient", patientID)
	}
	return nil
}

func (s *Service) withClinicLock(ctx context.Context, clinicID uuid.UUID, fn func(ctx context.Context) error) error {
	start := s.now()
	err := s.locker.WithClinicLock(ctx, clinicID, fn)
	s.metrics.ObserveLockHeld(s.now().Sub(start))
	if errors.Is(err, lock.ErrNotAcquired) {
		return ErrClinicBusy
	}
	return err
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}

func outcome(err error) string {
	var (
		v *apperr.ValidationError
		c *apperr.ConflictError
		t *apperr.TransitionError
		n *apperr.NotFoundError
	)
	switch {
	case err == nil:
		return "admitted"
	case errors.As(err, &c):
		return "conflict"
	case errors.As(err, &v), errors.As(err, &t):
		return "invalid"
	case errors.As(err, &n):
		return "not_found"
	case errors.Is(err, ErrClinicBusy):
		return "busy"
	default:
		return "error"
	}
}
