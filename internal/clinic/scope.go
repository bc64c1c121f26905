package clinic

import (
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

// All selects every loaded clinic.
const All = "all"

// Scope is the session-local clinic selection. It is a value: callers pass it
// into every query instead of reading shared state.
type Scope struct {
	clinics  []Clinic
	selected uuid.UUID // uuid.Nil means "all"
}

// NewScope starts at "all" over the given clinics.
func NewScope(clinics []Clinic) Scope {
	cp := make([]Clinic, len(clinics))
	copy(cp, clinics)
	return Scope{clinics: cp}
}

// Select accepts "all" or the ID of a loaded clinic. Anything else is
// rejected and the current selection is kept.
func (s *Scope) Select(selection string) error {
	if selection == "" || selection == All {
		s.selected = uuid.Nil
		return nil
	}
	id, err := uuid.Parse(selection)
	if err != nil {
		return apperr.Validation("clinic_id", "must be \"all\" or a clinic id")
	}
	if !s.Contains(id) {
		return apperr.Validation("clinic_id", "clinic is not in the loaded list")
	}
	s.selected = id
	return nil
}

// Narrow returns a copy of s with the selection applied.
func (s Scope) Narrow(selection string) (Scope, error) {
	next := s
	if err := next.Select(selection); err != nil {
		return s, err
	}
	return next, nil
}

func (s Scope) IsAll() bool { return s.selected == uuid.Nil }

// Selected returns the chosen clinic, false when the scope is "all".
func (s Scope) Selected() (uuid.UUID, bool) {
	return s.selected, s.selected != uuid.Nil
}

// Matches is true for every row under "all", else only for the selected clinic.
func (s Scope) Matches(clinicID uuid.UUID) bool {
	return s.selected == uuid.Nil || clinicID == s.selected
}

func (s Scope) Contains(id uuid.UUID) bool {
	for _, c := range s.clinics {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s Scope) Clinics() []Clinic {
	cp := make([]Clinic, len(s.clinics))
	copy(cp, s.clinics)
	return cp
}

func (s Scope) String() string {
	if s.selected == uuid.Nil {
		return All
	}
	return s.selected.String()
}
