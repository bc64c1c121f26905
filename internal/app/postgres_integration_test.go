//go:build integration

package app_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/app"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/demo"
	"github.com/hackgods/clinic-scheduling/internal/lock"
	"github.com/hackgods/clinic-scheduling/internal/patient"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pool, cleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}
	testPool = pool

	code := m.Run()
	cleanup()
	os.Exit(code)
}

func startPostgres(ctx context.Context) (*pgxpool.Pool, func(), error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "clinic_test",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres container: %w", err)
	}
	terminate := func() { _ = container.Terminate(context.Background()) }

	host, err := container.Host(ctx)
	if err != nil {
		terminate()
		return nil, nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		terminate()
		return nil, nil, err
	}

	dsn := fmt.Sprintf("postgres://test:testpass@%s:%s/clinic_test?sslmode=disable", host, port.Port())
	pool, err := db.ConnectPostgres(ctx, dsn, zerolog.Nop())
	if err != nil {
		terminate()
		return nil, nil, err
	}
	if _, err := db.NewMigrator(pool).Up(ctx); err != nil {
		pool.Close()
		terminate()
		return nil, nil, err
	}

	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}

// seedDataset loads a fresh generated dataset; subject keeps doctor rows
// apart between tests.
func seedDataset(t *testing.T, subject string) (demo.Dataset, *app.Services) {
	t.Helper()
	ctx := context.Background()

	opts := demo.DefaultOptions()
	opts.DoctorSubject = subject
	opts.DoctorEmail = subject + "@clinic.test"
	opts.AdminSubject = subject + "-admin"
	opts.AdminEmail = subject + "-admin@clinic.test"
	ds := demo.Generate(opts)

	repos := app.PostgresRepositories(testPool)
	require.NoError(t, app.Seed(ctx, repos, ds))

	svcs := app.NewServices(repos, app.Options{
		Locker:       lock.NewLocal(time.Second),
		IsSuperAdmin: func(string) bool { return false },
		Logger:       zerolog.Nop(),
	})
	return ds, svcs
}

func TestMigrator_UpIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := db.NewMigrator(testPool)

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	for _, st := range statuses {
		assert.True(t, st.Applied, st.Name)
		assert.NotNil(t, st.AppliedAt)
	}
}

func TestExclusionConstraint_RejectsOverlapOnly(t *testing.T) {
	ctx := context.Background()
	ds, _ := seedDataset(t, "pg-exclusion")
	repo := appointment.NewPgRepository(testPool)

	p := ds.Patients[0]
	day := time.Now().AddDate(0, 0, 60).Truncate(24 * time.Hour).Add(9 * time.Hour)
	mk := func(start, end time.Time) *appointment.Appointment {
		now := time.Now()
		return &appointment.Appointment{
			ID:        uuid.New(),
			DoctorID:  ds.Doctor.ID,
			ClinicID:  p.ClinicID,
			PatientID: p.ID,
			StartTime: start,
			EndTime:   end,
			Status:    appointment.StatusBooked,
			Channel:   appointment.ChannelManual,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	first := mk(day, day.Add(30*time.Minute))
	require.NoError(t, repo.Insert(ctx, first))

	err := repo.Insert(ctx, mk(day.Add(15*time.Minute), day.Add(45*time.Minute)))
	assert.ErrorIs(t, err, appointment.ErrOverlap)

	// Half-open: touching intervals do not collide.
	require.NoError(t, repo.Insert(ctx, mk(day.Add(30*time.Minute), day.Add(time.Hour))))

	// Cancelled rows leave the constraint.
	_, err = repo.UpdateStatus(ctx, first.ID, appointment.StatusBooked, appointment.StatusCancelled)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, mk(day.Add(10*time.Minute), day.Add(20*time.Minute))))
}

func TestServices_AdmitAndScopeAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	ds, svcs := seedDataset(t, "pg-services")

	a, err := svcs.Resolver.Resolve(ctx, actor.Identity{Subject: ds.Doctor.UserID, Email: ds.Doctor.EmailAddr})
	require.NoError(t, err)
	doc, ok := actor.AsDoctor(a)
	require.True(t, ok)
	assert.Len(t, doc.OwnedClinics, len(ds.Clinics))

	scope, err := svcs.Clinics.LoadScope(ctx, a, "")
	require.NoError(t, err)
	assert.True(t, scope.IsAll())

	var booked *appointment.Appointment
	for i := range ds.Appointments {
		if ds.Appointments[i].Status == appointment.StatusBooked {
			booked = &ds.Appointments[i]
			break
		}
	}
	require.NotNil(t, booked, "dataset has no booked appointment")

	_, err = svcs.Appointments.Admit(ctx, a, appointment.Candidate{
		ClinicID:  booked.ClinicID,
		PatientID: booked.PatientID,
		StartTime: booked.StartTime,
		EndTime:   booked.EndTime,
	})
	var cerr *apperr.ConflictError
	require.True(t, errors.As(err, &cerr), "got %v", err)
	assert.Equal(t, booked.ID, cerr.ConflictingAppointmentID)

	narrowed, err := svcs.Clinics.LoadScope(ctx, a, booked.ClinicID.String())
	require.NoError(t, err)
	for _, appt := range svcs.Appointments.List(ctx, a, narrowed, appointment.ListFilter{Limit: 500}) {
		assert.Equal(t, booked.ClinicID, appt.ClinicID)
	}

	// A second doctor sees none of the first doctor's rows.
	other, err := svcs.Resolver.Resolve(ctx, actor.Identity{Subject: "pg-services-other", Email: "other@clinic.test"})
	require.NoError(t, err)
	otherScope, err := svcs.Clinics.LoadScope(ctx, other, "")
	require.NoError(t, err)
	assert.Empty(t, svcs.Appointments.List(ctx, other, otherScope, appointment.ListFilter{}))
	assert.Empty(t, svcs.Patients.List(ctx, other, otherScope, patient.Filter{}))
}

func TestPatientDelete_CascadesInPostgres(t *testing.T) {
	ctx := context.Background()
	ds, svcs := seedDataset(t, "pg-cascade")

	a, err := svcs.Resolver.Resolve(ctx, actor.Identity{Subject: ds.Doctor.UserID, Email: ds.Doctor.EmailAddr})
	require.NoError(t, err)

	require.NotEmpty(t, ds.Appointments)
	target := ds.Appointments[0].PatientID

	require.NoError(t, svcs.Patients.Delete(ctx, a, target))

	scope, err := svcs.Clinics.LoadScope(ctx, a, "")
	require.NoError(t, err)
	left := svcs.Appointments.List(ctx, a, scope, appointment.ListFilter{PatientID: target})
	assert.Empty(t, left)
}

func TestCreateDoctor_DuplicateSubjectReportsExists(t *testing.T) {
	ctx := context.Background()
	repo := actor.NewPgRepository(testPool)

	first := &actor.Doctor{ID: uuid.New(), UserID: "pg-dup", EmailAddr: "dup@clinic.test", Plan: actor.DefaultPlan, CreatedAt: time.Now()}
	require.NoError(t, repo.CreateDoctor(ctx, first))

	second := *first
	second.ID = uuid.New()
	assert.ErrorIs(t, repo.CreateDoctor(ctx, &second), actor.ErrDoctorExists)

	stored, err := repo.FindDoctorByUserID(ctx, "pg-dup")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
}
