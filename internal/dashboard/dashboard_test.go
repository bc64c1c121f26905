package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/voicelog"
)

type stubSources struct {
	appts []appointment.Appointment
	seen  chan appointment.ListFilter
}

func (s *stubSources) List(_ context.Context, _ actor.Actor, _ clinic.Scope, f appointment.ListFilter) []appointment.Appointment {
	if s.seen != nil {
		s.seen <- f
	}
	var out []appointment.Appointment
	for _, a := range s.appts {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

type stubPatients struct{ rows []patient.Patient }

func (s stubPatients) List(context.Context, actor.Actor, clinic.Scope, patient.Filter) []patient.Patient {
	return s.rows
}

type stubRx struct{}

func (stubRx) List(context.Context, actor.Actor, clinic.Scope, prescription.Filter) []prescription.Prescription {
	return nil
}

type stubLogs struct{ rows []voicelog.Log }

func (s stubLogs) List(context.Context, actor.Actor, clinic.Scope, voicelog.Filter) []voicelog.Log {
	return s.rows
}

func TestLoader_Load(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return time.Date(2024, 6, 3, h, 0, 0, 0, time.UTC) }

	appts := &stubSources{appts: []appointment.Appointment{
		{ID: uuid.New(), StartTime: at(9), EndTime: at(9).Add(30 * time.Minute), Status: appointment.StatusComplete},
		{ID: uuid.New(), StartTime: at(15), EndTime: at(15).Add(30 * time.Minute), Status: appointment.StatusBooked},
		{ID: uuid.New(), StartTime: at(15).Add(72 * time.Hour), EndTime: at(16).Add(72 * time.Hour), Status: appointment.StatusBooked},
		{ID: uuid.New(), StartTime: at(15).Add(30 * 24 * time.Hour), EndTime: at(16).Add(30 * 24 * time.Hour), Status: appointment.StatusBooked},
	}}
	l := NewLoader(appts, stubPatients{rows: []patient.Patient{{ID: uuid.New()}}}, stubRx{}, stubLogs{rows: []voicelog.Log{{ID: uuid.New()}}})
	l.now = func() time.Time { return now }

	c := clinic.Clinic{ID: uuid.New(), Name: "Main"}
	ov, err := l.Load(context.Background(), &actor.Doctor{ID: uuid.New()}, clinic.NewScope([]clinic.Clinic{c}))
	require.NoError(t, err)

	assert.Equal(t, clinic.All, ov.Scope)
	assert.Equal(t, 2, ov.Today)
	assert.Len(t, ov.Upcoming, 2)
	assert.Len(t, ov.RecentPatients, 1)
	assert.Empty(t, ov.RecentPrescriptions)
	assert.Len(t, ov.RecentCalls, 1)
	assert.Equal(t, []clinic.Clinic{c}, ov.Clinics)
	assert.Equal(t, now, ov.GeneratedAt)
}

func TestLoader_CancelledContext(t *testing.T) {
	l := NewLoader(&stubSources{}, stubPatients{}, stubRx{}, stubLogs{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Load(ctx, &actor.Doctor{ID: uuid.New()}, clinic.Scope{})
	assert.ErrorIs(t, err, context.Canceled)
}

// gatedLoader blocks each Load until its release channel is closed.
type gatedLoader struct {
	started chan string
	release map[string]chan struct{}
}

func (g *gatedLoader) Load(_ context.Context, _ actor.Actor, scope clinic.Scope) (*Overview, error) {
	g.started <- scope.String()
	<-g.release[scope.String()]
	return &Overview{Scope: scope.String()}, nil
}

func TestView_LastIssuedRefreshWins(t *testing.T) {
	c1 := clinic.Clinic{ID: uuid.New()}
	scope := clinic.NewScope([]clinic.Clinic{c1})
	narrowed, err := scope.Narrow(c1.ID.String())
	require.NoError(t, err)

	g := &gatedLoader{
		started: make(chan string, 2),
		release: map[string]chan struct{}{
			scope.String():    make(chan struct{}),
			narrowed.String(): make(chan struct{}),
		},
	}
	v := NewView(g)
	doc := &actor.Doctor{ID: uuid.New()}

	oldDone := make(chan error, 1)
	go func() {
		_, err := v.Refresh(context.Background(), doc, scope)
		oldDone <- err
	}()
	<-g.started

	newDone := make(chan *Overview, 1)
	go func() {
		ov, err := v.Refresh(context.Background(), doc, narrowed)
		assert.NoError(t, err)
		newDone <- ov
	}()
	<-g.started

	// The newer fetch completes first, then the old one returns late.
	close(g.release[narrowed.String()])
	ov := <-newDone
	assert.Equal(t, narrowed.String(), ov.Scope)

	close(g.release[scope.String()])
	assert.ErrorIs(t, <-oldDone, ErrStale)
	assert.Equal(t, narrowed.String(), v.Latest().Scope)
}

func TestView_InvalidateDiscardsInFlight(t *testing.T) {
	scope := clinic.Scope{}
	g := &gatedLoader{
		started: make(chan string, 1),
		release: map[string]chan struct{}{scope.String(): make(chan struct{})},
	}
	v := NewView(g)

	done := make(chan error, 1)
	go func() {
		_, err := v.Refresh(context.Background(), &actor.Doctor{ID: uuid.New()}, scope)
		done <- err
	}()
	<-g.started
	v.Invalidate()
	close(g.release[scope.String()])

	assert.True(t, errors.Is(<-done, ErrStale))
	assert.Nil(t, v.Latest())
}

func TestViews_PerSubject(t *testing.T) {
	vs := NewViews(NewLoader(&stubSources{}, stubPatients{}, stubRx{}, stubLogs{}))

	a := vs.For("alice")
	assert.Same(t, a, vs.For("alice"))
	assert.NotSame(t, a, vs.For("bob"))

	_, err := a.Refresh(context.Background(), &actor.Doctor{ID: uuid.New()}, clinic.Scope{})
	require.NoError(t, err)
	require.NotNil(t, a.Latest())

	vs.Forget("alice")
	assert.Nil(t, a.Latest())
	assert.NotSame(t, a, vs.For("alice"))
}

func TestViews_EvictsIdleSubjects(t *testing.T) {
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	vs := NewViews(NewLoader(&stubSources{}, stubPatients{}, stubRx{}, stubLogs{}))
	vs.now = func() time.Time { return clock }

	idle := vs.For("idle")
	_, err := idle.Refresh(context.Background(), &actor.Doctor{ID: uuid.New()}, clinic.Scope{})
	require.NoError(t, err)
	active := vs.For("active")

	clock = clock.Add(IdleTTL / 2)
	assert.Same(t, active, vs.For("active"))

	clock = clock.Add(IdleTTL/2 + time.Minute)
	assert.Same(t, active, vs.For("active"))
	assert.Len(t, vs.views, 1)
	assert.Nil(t, idle.Latest())
	assert.NotSame(t, idle, vs.For("idle"))
}

func TestViews_ManySubjectsDoNotAccumulate(t *testing.T) {
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	vs := NewViews(NewLoader(&stubSources{}, stubPatients{}, stubRx{}, stubLogs{}))
	vs.now = func() time.Time { return clock }

	for i := 0; i < 500; i++ {
		vs.For(fmt.Sprintf("subject-%d", i))
		clock = clock.Add(10 * time.Second)
	}
	assert.Less(t, len(vs.views), 500)
	assert.LessOrEqual(t, len(vs.views), int((IdleTTL+time.Minute)/(10*time.Second))+1)
}
