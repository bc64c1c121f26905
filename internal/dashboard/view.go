package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
)

// ErrStale is returned by Refresh when a newer refresh or an Invalidate
// happened while the load was in flight. The result was discarded.
var ErrStale = errors.New("dashboard refresh superseded")

type Loading interface {
	Load(ctx context.Context, a actor.Actor, scope clinic.Scope) (*Overview, error)
}

// View is one session's overview. Every Refresh takes a new generation and
// only a result whose generation is still current is kept.
type View struct {
	loader Loading

	mu     sync.Mutex
	gen    uint64
	latest *Overview
}

func NewView(loader Loading) *View {
	return &View{loader: loader}
}

func (v *View) Refresh(ctx context.Context, a actor.Actor, scope clinic.Scope) (*Overview, error) {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	ov, err := v.loader.Load(ctx, a, scope)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return nil, ErrStale
	}
	v.latest = ov
	return ov, nil
}

// Invalidate drops the current overview and supersedes any in-flight
// refresh. Call it on scope change or sign-out.
func (v *View) Invalidate() {
	v.mu.Lock()
	v.gen++
	v.latest = nil
	v.mu.Unlock()
}

// Latest is the last accepted overview, nil before the first refresh.
func (v *View) Latest() *Overview {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest
}

// IdleTTL is how long a subject's view survives without a For call.
const IdleTTL = 30 * time.Minute

// Views keeps one View per signed-in subject. Views idle for longer than
// IdleTTL are dropped by later For calls, so subjects that never sign out do
// not accumulate.
type Views struct {
	loader Loading
	now    func() time.Time

	mu        sync.Mutex
	views     map[string]*viewEntry
	lastSweep time.Time
}

type viewEntry struct {
	view     *View
	lastUsed time.Time
}

func NewViews(loader Loading) *Views {
	return &Views{loader: loader, now: time.Now, views: make(map[string]*viewEntry)}
}

func (vs *Views) For(subject string) *View {
	now := vs.now()

	vs.mu.Lock()
	evicted := vs.sweepLocked(now)
	e, ok := vs.views[subject]
	if !ok {
		e = &viewEntry{view: NewView(vs.loader)}
		vs.views[subject] = e
	}
	e.lastUsed = now
	vs.mu.Unlock()

	for _, v := range evicted {
		v.Invalidate()
	}
	return e.view
}

// sweepLocked removes idle entries, at most once per minute.
func (vs *Views) sweepLocked(now time.Time) []*View {
	if now.Sub(vs.lastSweep) < time.Minute {
		return nil
	}
	vs.lastSweep = now

	var evicted []*View
	for subject, e := range vs.views {
		if now.Sub(e.lastUsed) > IdleTTL {
			evicted = append(evicted, e.view)
			delete(vs.views, subject)
		}
	}
	return evicted
}

// Forget invalidates and removes the subject's view.
func (vs *Views) Forget(subject string) {
	vs.mu.Lock()
	e, ok := vs.views[subject]
	delete(vs.views, subject)
	vs.mu.Unlock()
	if ok {
		e.view.Invalidate()
	}
}
