package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/dashboard"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/voicelog"
)

// DoctorDirectory lists doctor profiles for the admin screen.
type DoctorDirectory interface {
	ListDoctors(ctx context.Context, limit, offset int) ([]actor.Doctor, error)
}

type RouterConfig struct {
	Logger   zerolog.Logger
	Metrics  *metrics.Collector
	Verifier *auth.Verifier
	Revoker  auth.Revoker
	Resolver actor.Resolving

	Clinics       *clinic.Service
	Patients      *patient.Service
	Appointments  *appointment.Service
	Prescriptions *prescription.Service
	VoiceLogs     *voicelog.Service
	Dashboards    *dashboard.Views
	Doctors       DoctorDirectory

	// All optional; nil means the dependency is not in use.
	PgPool *pgxpool.Pool
	Redis  *redis.Client
	Broker BrokerStatus

	Env            string
	Version        string
	DemoMode       bool
	ReportLocation *time.Location
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware(cfg.Metrics))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Broker, cfg.Env, cfg.Version, cfg.DemoMode)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Verifier, cfg.Revoker, cfg.Resolver))

		r.Get("/me", meHandler(cfg.Clinics))
		r.Post("/session/sign-out", signOutHandler(cfg.Revoker, cfg.Dashboards))

		r.Get("/clinics", listClinicsHandler(cfg.Clinics))
		r.Post("/clinics", createClinicHandler(cfg.Clinics))

		r.Get("/patients", listPatientsHandler(cfg.Clinics, cfg.Patients))
		r.Post("/patients", createPatientHandler(cfg.Patients))
		r.Get("/patients/{id}", getPatientHandler(cfg.Patients))
		r.Patch("/patients/{id}", updatePatientHandler(cfg.Patients))
		r.Delete("/patients/{id}", deletePatientHandler(cfg.Patients))

		r.Get("/appointments", listAppointmentsHandler(cfg.Clinics, cfg.Appointments))
		r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
		r.Post("/appointments/check", checkAppointmentHandler(cfg.Appointments))
		r.Get("/appointments/default-end", defaultEndHandler())
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		r.Patch("/appointments/{id}/schedule", rescheduleAppointmentHandler(cfg.Appointments))
		r.Post("/appointments/{id}/status", changeStatusHandler(cfg.Appointments))

		r.Get("/prescriptions", listPrescriptionsHandler(cfg.Clinics, cfg.Prescriptions))
		r.Post("/prescriptions", createPrescriptionHandler(cfg.Prescriptions))
		r.Get("/prescriptions/{id}", getPrescriptionHandler(cfg.Prescriptions))
		r.Delete("/prescriptions/{id}", deletePrescriptionHandler(cfg.Prescriptions))
		r.Post("/prescriptions/{id}/send", sendPrescriptionHandler(cfg.Prescriptions))

		r.Get("/voice-logs", listVoiceLogsHandler(cfg.Clinics, cfg.VoiceLogs))
		r.Get("/voice-logs/{id}", getVoiceLogHandler(cfg.VoiceLogs))

		r.Get("/dashboard", dashboardHandler(cfg.Clinics, cfg.Dashboards))
		r.Get("/reports/appointments.xlsx", appointmentsReportHandler(cfg.Clinics, cfg.Appointments, cfg.Patients, cfg.ReportLocation))
		r.Get("/admin/doctors", listDoctorsHandler(cfg.Doctors))
	})

	return r
}

// scopeFor loads the actor's clinics and applies the clinic_id query
// parameter. It writes the error response itself.
func scopeFor(w http.ResponseWriter, r *http.Request, clinics *clinic.Service) (clinic.Scope, bool) {
	scope, err := clinics.LoadScope(r.Context(), ActorFrom(r.Context()), r.URL.Query().Get("clinic_id"))
	if err != nil {
		writeServiceError(w, r, err)
		return clinic.Scope{}, false
	}
	return scope, true
}
