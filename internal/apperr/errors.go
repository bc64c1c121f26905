// Package apperr holds the error taxonomy shared by the scheduling and
// entity services. Callers match with errors.As.
package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrForbidden is returned when the actor kind may not perform an action at
// all (an admin creating a clinic, a doctor listing doctors).
var ErrForbidden = errors.New("forbidden")

// ValidationError reports malformed input: a bad interval, a missing
// required field, an unknown enum value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// ConflictError reports an overlapping booking at the same clinic.
type ConflictError struct {
	Reason                   string
	ConflictingAppointmentID uuid.UUID
}

func (e *ConflictError) Error() string {
	if e.ConflictingAppointmentID == uuid.Nil {
		return "conflict: " + e.Reason
	}
	return fmt.Sprintf("conflict: %s (appointment %s)", e.Reason, e.ConflictingAppointmentID)
}

// TransitionError reports an illegal appointment status change.
type TransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move appointment from %s to %s: %s", e.From, e.To, e.Reason)
}

// NotFoundError reports a referenced entity that does not exist or is not
// visible to the acting doctor. The two cases are deliberately not told apart.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StorageError wraps a failure of the storage collaborator.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func NotFound(entity string, id fmt.Stringer) error {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// Storage wraps err as a StorageError unless it already carries one of the
// typed failures above, which pass through untouched.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTyped(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsTyped reports whether err is one of the user-facing failures
// (validation, conflict, transition, not found).
func IsTyped(err error) bool {
	var (
		v *ValidationError
		c *ConflictError
		t *TransitionError
		n *NotFoundError
	)
	return errors.As(err, &v) || errors.As(err, &c) || errors.As(err, &t) || errors.As(err, &n)
}

func IsStorage(err error) bool {
	var s *StorageError
	return errors.As(err, &s)
}
