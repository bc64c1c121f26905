package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Local is an in-process Locker for demo mode and single-replica
// deployments. Unlike the Redis locker it waits for the lock, bounded by
// wait and the caller's context.
type Local struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
	wait  time.Duration
}

func NewLocal(wait time.Duration) *Local {
	return &Local{slots: make(map[uuid.UUID]chan struct{}), wait: wait}
}

func (l *Local) slot(clinicID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[clinicID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[clinicID] = ch
	}
	return ch
}

func (l *Local) WithClinicLock(ctx context.Context, clinicID uuid.UUID, fn func(ctx context.Context) error) error {
	ch := l.slot(clinicID)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
	case <-timer.C:
		return ErrNotAcquired
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-ch }()

	return fn(ctx)
}
