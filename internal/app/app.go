// Package app wires repositories into services. Demo mode and Postgres mode
// differ only in the Repositories value passed to NewServices.
package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/dashboard"
	"github.com/hackgods/clinic-scheduling/internal/demo"
	"github.com/hackgods/clinic-scheduling/internal/lock"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/voicelog"
)

type Repositories struct {
	Actors        actor.Store
	Clinics       clinic.Repository
	Patients      patient.Repository
	Appointments  appointment.Repository
	Prescriptions prescription.Repository
	VoiceLogs     voicelog.Repository
}

func DemoRepositories(s *demo.Store) Repositories {
	return Repositories{
		Actors:        s.Actors(),
		Clinics:       s.Clinics(),
		Patients:      s.Patients(),
		Appointments:  s.Appointments(),
		Prescriptions: s.Prescriptions(),
		VoiceLogs:     s.VoiceLogs(),
	}
}

func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Actors:        actor.NewPgRepository(pool),
		Clinics:       clinic.NewPgRepository(pool),
		Patients:      patient.NewPgRepository(pool),
		Appointments:  appointment.NewPgRepository(pool),
		Prescriptions: prescription.NewPgRepository(pool),
		VoiceLogs:     voicelog.NewPgRepository(pool),
	}
}

type Options struct {
	Locker       lock.Locker
	Notifier     prescription.Notifier
	IsSuperAdmin func(email string) bool
	Metrics      *metrics.Collector
	Logger       zerolog.Logger
}

type Services struct {
	Repos         Repositories
	Resolver      *actor.Resolver
	Clinics       *clinic.Service
	Patients      *patient.Service
	Appointments  *appointment.Service
	Prescriptions *prescription.Service
	VoiceLogs     *voicelog.Service
	Ingestor      *voicelog.Ingestor
	Dashboards    *dashboard.Views
}

func NewServices(repos Repositories, opts Options) *Services {
	log := func(component string) zerolog.Logger {
		return opts.Logger.With().Str("component", component).Logger()
	}

	s := &Services{Repos: repos}
	s.Resolver = actor.NewResolver(repos.Actors, repos.Clinics, opts.IsSuperAdmin, log("actor"))
	s.Clinics = clinic.NewService(repos.Clinics, log("clinic"))
	s.Patients = patient.NewService(repos.Patients, repos.Clinics, log("patient"))
	s.Appointments = appointment.NewService(repos.Appointments, repos.Clinics, repos.Patients, opts.Locker, opts.Metrics, log("appointment"))
	s.Prescriptions = prescription.NewService(repos.Prescriptions, repos.Patients, opts.Notifier, opts.Metrics, log("prescription"))
	s.VoiceLogs = voicelog.NewService(repos.VoiceLogs, repos.Patients, log("voicelog"))
	s.Ingestor = voicelog.NewIngestor(s.VoiceLogs, opts.Metrics, log("voice-ingest"))
	s.Dashboards = dashboard.NewViews(dashboard.NewLoader(s.Appointments, s.Patients, s.Prescriptions, s.VoiceLogs))
	return s
}
