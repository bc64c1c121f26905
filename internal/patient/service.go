package patient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/visibility"
)

// Clinics is the part of the clinic store the patient service needs.
type Clinics interface {
	GetByID(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
}

type Service struct {
	repo    Repository
	clinics Clinics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(repo Repository, clinics Clinics, logger zerolog.Logger) *Service {
	return &Service{repo: repo, clinics: clinics, logger: logger, now: time.Now}
}

// Create registers a patient in one of the acting doctor's clinics.
func (s *Service) Create(ctx context.Context, a actor.Actor, p *Patient) (*Patient, error) {
	doc, ok := actor.AsDoctor(a)
	if !ok {
		return nil, fmt.Errorf("create patient: %w", apperr.ErrForbidden)
	}

	c, err := s.clinics.GetByID(ctx, p.ClinicID)
	if err != nil {
		if errors.Is(err, clinic.ErrClinicNotFound) {
			return nil, apperr.NotFound("clinic", p.ClinicID)
		}
		return nil, apperr.Storage("load clinic", err)
	}
	if c.OwnerDoctorID != doc.ID {
		return nil, apperr.NotFound("clinic", p.ClinicID)
	}

	if err := normalize(p); err != nil {
		return nil, err
	}

	now := s.now()
	p.ID = uuid.New()
	p.DoctorID = doc.ID
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Storage("create patient", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, a actor.Actor, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, apperr.NotFound("patient", id)
		}
		return nil, apperr.Storage("load patient", err)
	}
	if !visibility.CanSee(a, p) {
		return nil, apperr.NotFound("patient", id)
	}
	return p, nil
}

// List returns the visible patients under scope. Read failures yield an
// empty list.
func (s *Service) List(ctx context.Context, a actor.Actor, scope clinic.Scope, f Filter) []Patient {
	crit := visibility.CriteriaFor(a, scope)
	if crit.Deny {
		return nil
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Tag = strings.ToLower(strings.TrimSpace(f.Tag))
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)

	patients, err := s.repo.List(ctx, crit, f)
	if err != nil {
		s.logger.Warn().Err(err).Str("scope", scope.String()).Msg("list patients failed, returning empty list")
		return nil
	}
	return patients
}

func (s *Service) Update(ctx context.Context, a actor.Actor, id uuid.UUID, patch Patch) (*Patient, error) {
	p, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, err
	}

	if patch.Phone != nil {
		p.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Email != nil {
		p.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Consent != nil {
		p.Consent = *patch.Consent
	}
	if patch.Tags != nil {
		p.Tags = *patch.Tags
	}
	if err := normalize(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Storage("update patient", err)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, a actor.Actor, id uuid.UUID) error {
	if _, err := s.Get(ctx, a, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return apperr.NotFound("patient", id)
		}
		return apperr.Storage("delete patient", err)
	}
	return nil
}

func normalize(p *Patient) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" {
		return apperr.Validation("first_name", "is required")
	}
	if p.LastName == "" {
		return apperr.Validation("last_name", "is required")
	}

	switch p.Sex {
	case SexUnknown, SexMale, SexFemale, SexOther:
	default:
		return apperr.Validation("sex", "must be male, female or other")
	}

	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return apperr.Validation("email", "is not an email address")
	}
	if p.DOB != nil && p.DOB.After(time.Now()) {
		return apperr.Validation("dob", "is in the future")
	}

	p.Tags = normalizeTags(p.Tags)
	return nil
}

// normalizeTags lowercases, trims and de-duplicates tags.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Matches reports whether p matches a free-text search over name, email and
// phone, and the optional tag. Used by the in-memory store.
func (f Filter) Matches(p Patient) bool {
	if f.Tag != "" {
		found := false
		for _, t := range p.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	for _, field := range []string{p.FirstName, p.LastName, p.FullName(), p.Email, p.Phone} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
