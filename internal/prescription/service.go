package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/visibility"
)

// ErrDeliveryFailed wraps an outbound channel failure. The prescription
// itself is unaffected.
var ErrDeliveryFailed = errors.New("prescription delivery failed")

type Patients interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Notifier sends a prescription over email or SMS.
type Notifier interface {
	SendPrescription(ctx context.Context, d Delivery) error
}

type Service struct {
	repo     Repository
	patients Patients
	notifier Notifier
	metrics  *metrics.Collector
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, patients Patients, notifier Notifier, m *metrics.Collector, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Create signs and stores a prescription for one of the acting doctor's
// patients. At least one medication with a name and dosage is required.
func (s *Service) Create(ctx context.Context, a actor.Actor, p *Prescription) (*Prescription, error) {
	doc, ok := actor.AsDoctor(a)
	if !ok {
		return nil, fmt.Errorf("create prescription: %w", apperr.ErrForbidden)
	}

	pt, err := s.loadPatient(ctx, p.PatientID)
	if err != nil {
		return nil, err
	}
	if pt.DoctorID != doc.ID {
		return nil, apperr.NotFound("patient", p.PatientID)
	}

	if len(p.Medications) == 0 {
		return nil, apperr.Validation("medications", "at least one medication is required")
	}
	for i := range p.Medications {
		m := &p.Medications[i]
		m.Name = strings.TrimSpace(m.Name)
		m.Dosage = strings.TrimSpace(m.Dosage)
		if m.Name == "" {
			return nil, apperr.Validation(fmt.Sprintf("medications[%d].name", i), "is required")
		}
		if m.Dosage == "" {
			return nil, apperr.Validation(fmt.Sprintf("medications[%d].dosage", i), "is required")
		}
	}

	now := s.now()
	p.ID = uuid.New()
	p.DoctorID = doc.ID
	p.ClinicID = pt.ClinicID
	p.SignedBy = doc.Name
	if p.SignedBy == "" {
		p.SignedBy = doc.EmailAddr
	}
	p.SignedAt = now
	p.CreatedAt = now

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Storage("create prescription", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, a actor.Actor, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return nil, apperr.NotFound("prescription", id)
		}
		return nil, apperr.Storage("load prescription", err)
	}
	if !visibility.CanSee(a, p) {
		return nil, apperr.NotFound("prescription", id)
	}
	return p, nil
}

// List returns visible prescriptions, newest first. Read failures yield an
// empty list.
func (s *Service) List(ctx context.Context, a actor.Actor, scope clinic.Scope, f Filter) []Prescription {
	crit := visibility.CriteriaFor(a, scope)
	if crit.Deny {
		return nil
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	list, err := s.repo.List(ctx, crit, f)
	if err != nil {
		s.logger.Warn().Err(err).Str("scope", scope.String()).Msg("list prescriptions failed, returning empty list")
		return nil
	}
	return list
}

func (s *Service) Delete(ctx context.Context, a actor.Actor, id uuid.UUID) error {
	if _, err := s.Get(ctx, a, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return apperr.NotFound("prescription", id)
		}
		return apperr.Storage("delete prescription", err)
	}
	return nil
}

// Send delivers a prescription to the patient once. Failures are reported,
// not retried.
func (s *Service) Send(ctx context.Context, a actor.Actor, id uuid.UUID, channel Channel) (*Delivery, error) {
	p, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, err
	}
	pt, err := s.loadPatient(ctx, p.PatientID)
	if err != nil {
		return nil, err
	}

	d := Delivery{Channel: channel, PatientName: pt.FullName(), Prescription: *p}
	switch channel {
	case ChannelEmail:
		d.Recipient = pt.Email
	case ChannelSMS:
		if !pt.Consent.Messaging {
			return nil, apperr.Validation("channel", "patient has not consented to messaging")
		}
		d.Recipient = pt.Phone
	default:
		return nil, apperr.Validation("channel", "must be email or sms")
	}
	if d.Recipient == "" {
		return nil, apperr.Validation("channel", "patient has no "+string(channel)+" contact")
	}

	err = s.notifier.SendPrescription(ctx, d)
	s.metrics.RecordNotification(string(channel), err == nil)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("prescription_id", p.ID.String()).
			Str("channel", string(channel)).
			Msg("prescription delivery failed")
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.logger.Info().Str("prescription_id", p.ID.String()).Str("channel", string(channel)).Msg("prescription sent")
	return &d, nil
}

func (s *Service) loadPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	if id == uuid.Nil {
		return nil, apperr.Validation("patient_id", "is required")
	}
	pt, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, patient.ErrPatientNotFound) {
			return nil, apperr.NotFound("patient", id)
		}
		return nil, apperr.Storage("load patient", err)
	}
	return pt, nil
}
