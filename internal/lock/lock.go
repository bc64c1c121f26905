// Package lock serialises the re-check and insert of an appointment per clinic.
package lock

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotAcquired = errors.New("clinic lock not acquired")

// Locker runs fn while holding the lock for clinicID. fn receives a context
// that is cancelled when the lock can no longer be trusted.
type Locker interface {
	WithClinicLock(ctx context.Context, clinicID uuid.UUID, fn func(ctx context.Context) error) error
}
