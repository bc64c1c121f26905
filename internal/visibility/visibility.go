// Package visibility is the one row-visibility rule shared by every list of
// patients, appointments, prescriptions and voice logs.
//
// A doctor sees rows it owns, narrowed by the clinic scope. An admin sees
// every row, narrowed by its own scope selection when it has made one. An
// unresolved session sees nothing.
package visibility

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
)

// Row is implemented by every scoped entity.
type Row interface {
	OwnerID() uuid.UUID
	ClinicRef() uuid.UUID
}

// Criteria is the visibility rule for one (actor, scope) pair. A zero
// DoctorID or ClinicID leaves that column unconstrained.
type Criteria struct {
	Deny     bool
	DoctorID uuid.UUID
	ClinicID uuid.UUID
}

func CriteriaFor(a actor.Actor, scope clinic.Scope) Criteria {
	var c Criteria
	switch v := a.(type) {
	case *actor.Doctor:
		if v == nil {
			return Criteria{Deny: true}
		}
		c.DoctorID = v.ID
	case *actor.Admin:
		if v == nil {
			return Criteria{Deny: true}
		}
	default:
		return Criteria{Deny: true}
	}
	if id, ok := scope.Selected(); ok {
		c.ClinicID = id
	}
	return c
}

func (c Criteria) Matches(r Row) bool {
	if c.Deny {
		return false
	}
	if c.DoctorID != uuid.Nil && r.OwnerID() != c.DoctorID {
		return false
	}
	if c.ClinicID != uuid.Nil && r.ClinicRef() != c.ClinicID {
		return false
	}
	return true
}

// Where renders the criteria as a SQL predicate over doctor_id and clinic_id,
// numbering placeholders from next. Callers must check Deny first.
func (c Criteria) Where(next int) (string, []any) {
	var (
		parts []string
		args  []any
	)
	if c.DoctorID != uuid.Nil {
		parts = append(parts, fmt.Sprintf("doctor_id = $%d", next))
		args = append(args, c.DoctorID)
		next++
	}
	if c.ClinicID != uuid.Nil {
		parts = append(parts, fmt.Sprintf("clinic_id = $%d", next))
		args = append(args, c.ClinicID)
	}
	if len(parts) == 0 {
		return "TRUE", nil
	}
	return strings.Join(parts, " AND "), args
}

// Visible reports whether a may see row under scope.
func Visible(a actor.Actor, scope clinic.Scope, row Row) bool {
	return CriteriaFor(a, scope).Matches(row)
}

// Filter keeps the rows a may see under scope, preserving order.
func Filter[T Row](a actor.Actor, scope clinic.Scope, rows []T) []T {
	c := CriteriaFor(a, scope)
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// CanSee applies the rule with no clinic selection. Single-row reads use it so
// a doctor cannot fetch another doctor's row by ID.
func CanSee(a actor.Actor, row Row) bool {
	return CriteriaFor(a, clinic.Scope{}).Matches(row)
}
