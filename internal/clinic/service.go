package clinic

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
)

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Load returns the clinics the actor can scope to: owned clinics for a
// doctor, every clinic for an admin. Storage failures yield an empty list.
func (s *Service) Load(ctx context.Context, a actor.Actor) []Clinic {
	var (
		clinics []Clinic
		err     error
	)
	switch v := a.(type) {
	case *actor.Doctor:
		clinics, err = s.repo.ListByOwner(ctx, v.ID)
	case *actor.Admin:
		clinics, err = s.repo.ListAll(ctx)
	default:
		return nil
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("actor_id", a.ActorID().String()).Msg("load clinics failed, using empty list")
		return nil
	}
	return clinics
}

// LoadScope loads the actor's clinics and applies selection on top.
func (s *Service) LoadScope(ctx context.Context, a actor.Actor, selection string) (Scope, error) {
	scope := NewScope(s.Load(ctx, a))
	if err := scope.Select(selection); err != nil {
		return scope, err
	}
	return scope, nil
}

// Get returns a clinic the actor may act on. Clinics owned by another doctor
// are reported as not found.
func (s *Service) Get(ctx context.Context, a actor.Actor, id uuid.UUID) (*Clinic, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrClinicNotFound) {
			return nil, apperr.NotFound("clinic", id)
		}
		return nil, apperr.Storage("load clinic", err)
	}
	if !CanActOn(a, c) {
		return nil, apperr.NotFound("clinic", id)
	}
	return c, nil
}

// CanActOn is the ownership rule for clinics themselves. A doctor must be the
// stored owner and must also carry the clinic in the owned set resolved for
// the request.
func CanActOn(a actor.Actor, c *Clinic) bool {
	switch v := a.(type) {
	case *actor.Doctor:
		return c.OwnerDoctorID == v.ID && v.Owns(c.ID)
	case *actor.Admin:
		return true
	default:
		return false
	}
}

func (s *Service) Create(ctx context.Context, a actor.Actor, c *Clinic) (*Clinic, error) {
	doc, ok := actor.AsDoctor(a)
	if !ok {
		return nil, fmt.Errorf("create clinic: %w", apperr.ErrForbidden)
	}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	for day, h := range c.OperatingHours {
		if !weekdays[strings.ToLower(day)] {
			return nil, apperr.Validation("operating_hours", "unknown weekday "+day)
		}
		if err := validateHours(h); err != nil {
			return nil, err
		}
	}

	c.ID = uuid.New()
	c.OwnerDoctorID = doc.ID
	c.CreatedAt = time.Now()

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Storage("create clinic", err)
	}

	doc.OwnedClinics = append(doc.OwnedClinics, c.ID)
	s.logger.Info().Str("clinic_id", c.ID.String()).Str("doctor_id", doc.ID.String()).Msg("clinic created")
	return c, nil
}

func validateHours(h Hours) error {
	open, err := time.Parse("15:04", h.Open)
	if err != nil {
		return apperr.Validation("operating_hours", "open must be HH:MM")
	}
	closing, err := time.Parse("15:04", h.Close)
	if err != nil {
		return apperr.Validation("operating_hours", "close must be HH:MM")
	}
	if !open.Before(closing) {
		return apperr.Validation("operating_hours", "open must be before close")
	}
	return nil
}
