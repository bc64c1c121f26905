// Package dashboard assembles the overview screen from the per-entity
// services and coordinates refreshes so that only the latest one is kept.
package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/voicelog"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	recentLimit    = 5
)

type Appointments interface {
	List(ctx context.Context, a actor.Actor, scope clinic.Scope, f appointment.ListFilter) []appointment.Appointment
}

type Patients interface {
	List(ctx context.Context, a actor.Actor, scope clinic.Scope, f patient.Filter) []patient.Patient
}

type Prescriptions interface {
	List(ctx context.Context, a actor.Actor, scope clinic.Scope, f prescription.Filter) []prescription.Prescription
}

type VoiceLogs interface {
	List(ctx context.Context, a actor.Actor, scope clinic.Scope, f voicelog.Filter) []voicelog.Log
}

type Overview struct {
	Scope               string                      `json:"scope"`
	Clinics             []clinic.Clinic             `json:"clinics"`
	Today               int                         `json:"appointments_today"`
	Upcoming            []appointment.Appointment   `json:"upcoming"`
	RecentPatients      []patient.Patient           `json:"recent_patients"`
	RecentPrescriptions []prescription.Prescription `json:"recent_prescriptions"`
	RecentCalls         []voicelog.Log              `json:"recent_calls"`
	GeneratedAt         time.Time                   `json:"generated_at"`
}

type Loader struct {
	appointments  Appointments
	patients      Patients
	prescriptions Prescriptions
	voiceLogs     VoiceLogs
	now           func() time.Time
}

func NewLoader(appts Appointments, patients Patients, rx Prescriptions, logs VoiceLogs) *Loader {
	return &Loader{
		appointments:  appts,
		patients:      patients,
		prescriptions: rx,
		voiceLogs:     logs,
		now:           time.Now,
	}
}

// Load runs the list fetches concurrently. The lists themselves fail soft,
// so the only error is a cancelled ctx.
func (l *Loader) Load(ctx context.Context, a actor.Actor, scope clinic.Scope) (*Overview, error) {
	now := l.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	ov := &Overview{Scope: scope.String(), Clinics: scope.Clinics(), GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		today := l.appointments.List(gctx, a, scope, appointment.ListFilter{
			From: dayStart, To: dayStart.Add(24 * time.Hour), Limit: 500,
		})
		ov.Today = len(today)
		return gctx.Err()
	})
	g.Go(func() error {
		ov.Upcoming = l.appointments.List(gctx, a, scope, appointment.ListFilter{
			Status: appointment.StatusBooked, From: now, To: now.Add(upcomingWindow), Limit: 20,
		})
		return gctx.Err()
	})
	g.Go(func() error {
		ov.RecentPatients = l.patients.List(gctx, a, scope, patient.Filter{Limit: recentLimit})
		return gctx.Err()
	})
	g.Go(func() error {
		ov.RecentPrescriptions = l.prescriptions.List(gctx, a, scope, prescription.Filter{Limit: recentLimit})
		return gctx.Err()
	})
	g.Go(func() error {
		ov.RecentCalls = l.voiceLogs.List(gctx, a, scope, voicelog.Filter{Limit: recentLimit})
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ov, nil
}
