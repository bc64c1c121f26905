package voicelog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/visibility"
)

type Patients interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients Patients
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, patients Patients, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, logger: logger, now: time.Now}
}

// Append validates and records a call event for l.DoctorID.
func (s *Service) Append(ctx context.Context, l *Log) (*Log, error) {
	if err := validate(l); err != nil {
		return nil, err
	}

	l.ClinicID = uuid.Nil
	if l.PatientID != nil {
		p, err := s.patients.GetByID(ctx, *l.PatientID)
		switch {
		case errors.Is(err, patient.ErrPatientNotFound):
			return nil, apperr.NotFound("patient", *l.PatientID)
		case err != nil:
			return nil, apperr.Storage("load patient", err)
		case p.DoctorID != l.DoctorID:
			return nil, apperr.NotFound("patient", *l.PatientID)
		}
		l.ClinicID = p.ClinicID
	}

	l.ID = uuid.New()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	if l.Actions == nil {
		l.Actions = []Action{}
	}

	if err := s.repo.Create(ctx, l); err != nil {
		if errors.Is(err, ErrDuplicateCall) {
			return nil, err
		}
		return nil, apperr.Storage("create voice log", err)
	}
	return l, nil
}

func (s *Service) Get(ctx context.Context, a actor.Actor, id uuid.UUID) (*Log, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrLogNotFound) {
			return nil, apperr.NotFound("voice log", id)
		}
		return nil, apperr.Storage("load voice log", err)
	}
	if !canRead(a) || !visibility.CanSee(a, l) {
		return nil, apperr.NotFound("voice log", id)
	}
	return l, nil
}

// List returns visible call logs, newest first. Unattributed logs only
// appear under the "all" scope. Read failures yield an empty list.
func (s *Service) List(ctx context.Context, a actor.Actor, scope clinic.Scope, f Filter) []Log {
	crit := visibility.CriteriaFor(a, scope)
	if crit.Deny || !canRead(a) {
		return nil
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	logs, err := s.repo.List(ctx, crit, f)
	if err != nil {
		s.logger.Warn().Err(err).Str("scope", scope.String()).Msg("list voice logs failed, returning empty list")
		return nil
	}
	return logs
}

// Admins need view_logs; doctors always read their own.
func canRead(a actor.Actor) bool {
	if _, ok := actor.AsAdmin(a); ok {
		return actor.HasPermission(a, actor.PermViewLogs)
	}
	return a != nil
}

func validate(l *Log) error {
	if l.DoctorID == uuid.Nil {
		return apperr.Validation("doctor_id", "is required")
	}
	l.CallID = strings.TrimSpace(l.CallID)
	if l.CallID == "" {
		return apperr.Validation("call_id", "is required")
	}
	switch l.CallType {
	case CallInbound, CallOutbound:
	default:
		return apperr.Validation("call_type", "must be inbound or outbound")
	}
	switch l.Status {
	case CallCompleted, CallMissed, CallFailed:
	default:
		return apperr.Validation("status", "must be completed, missed or failed")
	}
	if l.DurationSeconds < 0 {
		return apperr.Validation("duration_seconds", "must not be negative")
	}
	if l.ConfidenceScore != nil && (*l.ConfidenceScore < 0 || *l.ConfidenceScore > 1) {
		return apperr.Validation("confidence_score", "must be between 0 and 1")
	}
	return nil
}
