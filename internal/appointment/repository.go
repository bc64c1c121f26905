package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/visibility"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrOverlap is returned by a store that enforces the no-overlap rule
	// itself (the Postgres exclusion constraint).
	ErrOverlap = errors.New("overlapping booked appointment")
)

// Repository contains all storage interactions needed by the service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// For conflict checks: booked appointments at clinicID intersecting [from, to).
	ListBookedInWindow(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]Appointment, error)

	Insert(ctx context.Context, a *Appointment) error
	// UpdateSchedule moves a booked appointment; ErrAppointmentNotFound if it is no longer booked.
	UpdateSchedule(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error)
	// UpdateStatus is a compare-and-set on the current status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	List(ctx context.Context, c visibility.Criteria, f ListFilter) ([]Appointment, error)

	// No-show worker
	FindOverdueBooked(ctx context.Context, endedBefore time.Time, limit int) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
