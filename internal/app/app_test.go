package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/demo"
	"github.com/hackgods/clinic-scheduling/internal/lock"
)

func demoServices(t *testing.T) (*demo.Store, demo.Dataset, *app.Services) {
	t.Helper()
	store := demo.NewStore()
	ds := demo.Generate(demo.DefaultOptions())
	repos := app.DemoRepositories(store)
	require.NoError(t, app.Seed(context.Background(), repos, ds))

	svcs := app.NewServices(repos, app.Options{
		Locker:       lock.NewLocal(time.Second),
		IsSuperAdmin: func(string) bool { return false },
		Logger:       zerolog.Nop(),
	})
	return store, ds, svcs
}

func TestSeed_WritesWholeDataset(t *testing.T) {
	ctx := context.Background()
	_, ds, svcs := demoServices(t)

	a, err := svcs.Resolver.Resolve(ctx, actor.Identity{Subject: ds.Doctor.UserID, Email: ds.Doctor.EmailAddr})
	require.NoError(t, err)
	doc, ok := actor.AsDoctor(a)
	require.True(t, ok)
	assert.Equal(t, ds.Doctor.ID, doc.ID)
	assert.Len(t, doc.OwnedClinics, len(ds.Clinics))

	scope, err := svcs.Clinics.LoadScope(ctx, a, "")
	require.NoError(t, err)
	appts := svcs.Appointments.List(ctx, a, scope, appointment.ListFilter{Limit: 500})
	assert.Len(t, appts, len(ds.Appointments))

	admin, err := svcs.Resolver.Resolve(ctx, actor.Identity{Subject: ds.Admin.UserID, Email: ds.Admin.EmailAddr})
	require.NoError(t, err)
	assert.Equal(t, actor.KindAdmin, admin.Kind())
}

func TestSeed_StopsOnStorageError(t *testing.T) {
	store := demo.NewStore()
	store.FailWith(errors.New("disk full"))

	err := app.Seed(context.Background(), app.DemoRepositories(store), demo.Generate(demo.DefaultOptions()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create doctor")
}

func TestNewServices_SharesRepositories(t *testing.T) {
	store, ds, svcs := demoServices(t)

	assert.NotNil(t, svcs.Ingestor)
	assert.NotNil(t, svcs.Dashboards)
	assert.Len(t, store.Events(), 0)

	// Services built over the same store observe each other's writes.
	ctx := context.Background()
	a, err := svcs.Resolver.Resolve(ctx, actor.Identity{Subject: ds.Doctor.UserID, Email: ds.Doctor.EmailAddr})
	require.NoError(t, err)
	p := ds.Patients[0]
	require.NoError(t, svcs.Patients.Delete(ctx, a, p.ID))

	scope, err := svcs.Clinics.LoadScope(ctx, a, "")
	require.NoError(t, err)
	assert.Empty(t, svcs.Appointments.List(ctx, a, scope, appointment.ListFilter{PatientID: p.ID}))
}

func TestResolve_ConcurrentFirstRequestsShareOneProfile(t *testing.T) {
	ctx := context.Background()
	store := demo.NewStore()
	svcs := app.NewServices(app.DemoRepositories(store), app.Options{
		Locker: lock.NewLocal(time.Second),
		Logger: zerolog.Nop(),
	})
	id := actor.Identity{Subject: "fresh-subject", Email: "fresh@clinic.test"}

	const workers = 64
	var (
		start sync.WaitGroup
		done  sync.WaitGroup
		mu    sync.Mutex
		seen  = map[uuid.UUID]bool{}
	)
	start.Add(1)
	for i := 0; i < workers; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			start.Wait()
			a, err := svcs.Resolver.Resolve(ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[a.ActorID()] = true
			mu.Unlock()
		}()
	}
	start.Done()
	done.Wait()

	assert.Len(t, seen, 1, "concurrent resolves forked the profile")

	doctors, err := store.Actors().ListDoctors(ctx, 1000, 0)
	require.NoError(t, err)
	rows := 0
	for _, d := range doctors {
		if d.UserID == id.Subject {
			rows++
		}
	}
	assert.Equal(t, 1, rows)

	for i := 0; i < 20; i++ {
		a, err := svcs.Resolver.Resolve(ctx, id)
		require.NoError(t, err)
		assert.True(t, seen[a.ActorID()])
	}
}
