// Package demo is the in-memory storage used when no database is configured
// and by tests. Each accessor implements one repository interface over the
// same Store, so demo mode is only a different storage backend.
package demo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/visibility"
	"github.com/hackgods/clinic-scheduling/internal/voicelog"
)

type Store struct {
	mu sync.RWMutex

	doctors       map[uuid.UUID]actor.Doctor
	admins        map[uuid.UUID]actor.Admin
	clinics       map[uuid.UUID]clinic.Clinic
	patients      map[uuid.UUID]patient.Patient
	appointments  map[uuid.UUID]appointment.Appointment
	prescriptions map[uuid.UUID]prescription.Prescription
	voiceLogs     map[uuid.UUID]voicelog.Log
	events        []appointment.EventLog

	failErr error
}

func NewStore() *Store {
	return &Store{
		doctors:       map[uuid.UUID]actor.Doctor{},
		admins:        map[uuid.UUID]actor.Admin{},
		clinics:       map[uuid.UUID]clinic.Clinic{},
		patients:      map[uuid.UUID]patient.Patient{},
		appointments:  map[uuid.UUID]appointment.Appointment{},
		prescriptions: map[uuid.UUID]prescription.Prescription{},
		voiceLogs:     map[uuid.UUID]voicelog.Log{},
	}
}

// FailWith makes every subsequent operation return err, simulating an
// unavailable backend. FailWith(nil) restores normal operation.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *Store) fail() error {
	return s.failErr
}

// Events returns a copy of the appointment event log.
func (s *Store) Events() []appointment.EventLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]appointment.EventLog, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Actors() *ActorRepo               { return &ActorRepo{s} }
func (s *Store) Clinics() *ClinicRepo             { return &ClinicRepo{s} }
func (s *Store) Patients() *PatientRepo           { return &PatientRepo{s} }
func (s *Store) Appointments() *AppointmentRepo   { return &AppointmentRepo{s} }
func (s *Store) Prescriptions() *PrescriptionRepo { return &PrescriptionRepo{s} }
func (s *Store) VoiceLogs() *VoiceLogRepo         { return &VoiceLogRepo{s} }

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// Actors

type ActorRepo struct{ s *Store }

func (r *ActorRepo) FindAdminByUserID(_ context.Context, userID string) (*actor.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	for _, a := range r.s.admins {
		if a.UserID == userID {
			a := a
			a.Permissions = append([]actor.Permission(nil), a.Permissions...)
			return &a, nil
		}
	}
	return nil, actor.ErrAdminNotFound
}

func (r *ActorRepo) FindDoctorByUserID(_ context.Context, userID string) (*actor.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	for _, d := range r.s.doctors {
		if d.UserID == userID {
			d := d
			d.OwnedClinics = nil
			return &d, nil
		}
	}
	return nil, actor.ErrDoctorNotFound
}

func (r *ActorRepo) CreateDoctor(_ context.Context, d *actor.Doctor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	for _, existing := range r.s.doctors {
		if existing.UserID == d.UserID && existing.ID != d.ID {
			return actor.ErrDoctorExists
		}
	}
	cp := *d
	cp.OwnedClinics = nil
	r.s.doctors[d.ID] = cp
	return nil
}

func (r *ActorRepo) CreateAdmin(_ context.Context, a *actor.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	r.s.admins[a.ID] = *a
	return nil
}

func (r *ActorRepo) ListDoctors(_ context.Context, limit, offset int) ([]actor.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	out := make([]actor.Doctor, 0, len(r.s.doctors))
	for _, d := range r.s.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

// Clinics

type ClinicRepo struct{ s *Store }

func (r *ClinicRepo) Create(_ context.Context, c *clinic.Clinic) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	r.s.clinics[c.ID] = *c
	return nil
}

func (r *ClinicRepo) GetByID(_ context.Context, id uuid.UUID) (*clinic.Clinic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	c, ok := r.s.clinics[id]
	if !ok {
		return nil, clinic.ErrClinicNotFound
	}
	return &c, nil
}

func (r *ClinicRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]clinic.Clinic, error) {
	return r.list(func(c clinic.Clinic) bool { return c.OwnerDoctorID == ownerID })
}

func (r *ClinicRepo) ListAll(context.Context) ([]clinic.Clinic, error) {
	return r.list(func(clinic.Clinic) bool { return true })
}

func (r *ClinicRepo) ListOwnedClinicIDs(ctx context.Context, doctorID uuid.UUID) ([]uuid.UUID, error) {
	cs, err := r.ListByOwner(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (r *ClinicRepo) list(keep func(clinic.Clinic) bool) ([]clinic.Clinic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	var out []clinic.Clinic
	for _, c := range r.s.clinics {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Patients

type PatientRepo struct{ s *Store }

func (r *PatientRepo) Create(_ context.Context, p *patient.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	r.s.patients[p.ID] = clonePatient(*p)
	return nil
}

func (r *PatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	p, ok := r.s.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	p = clonePatient(p)
	return &p, nil
}

func (r *PatientRepo) List(_ context.Context, c visibility.Criteria, f patient.Filter) ([]patient.Patient, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	var out []patient.Patient
	for _, p := range r.s.patients {
		if c.Matches(p) && f.Matches(p) {
			out = append(out, clonePatient(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LastName != b.LastName {
			return strings.ToLower(a.LastName) < strings.ToLower(b.LastName)
		}
		return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName)
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r *PatientRepo) Update(_ context.Context, p *patient.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	if _, ok := r.s.patients[p.ID]; !ok {
		return patient.ErrPatientNotFound
	}
	r.s.patients[p.ID] = clonePatient(*p)
	return nil
}

func (r *PatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	if _, ok := r.s.patients[id]; !ok {
		return patient.ErrPatientNotFound
	}
	delete(r.s.patients, id)
	// ON DELETE CASCADE
	for k, a := range r.s.appointments {
		if a.PatientID == id {
			delete(r.s.appointments, k)
		}
	}
	for k, p := range r.s.prescriptions {
		if p.PatientID == id {
			delete(r.s.prescriptions, k)
		}
	}
	return nil
}

func clonePatient(p patient.Patient) patient.Patient {
	p.Tags = append([]string(nil), p.Tags...)
	if p.DOB != nil {
		dob := *p.DOB
		p.DOB = &dob
	}
	return p
}

// Appointments

// AppointmentRepo enforces the no-overlap rule on writes the same way the
// Postgres exclusion constraint does.
type AppointmentRepo struct{ s *Store }

func (r *AppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *AppointmentRepo) ListBookedInWindow(_ context.Context, clinicID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	var out []appointment.Appointment
	for _, a := range r.s.appointments {
		if a.ClinicID == clinicID && a.Status == appointment.StatusBooked &&
			appointment.Overlaps(from, to, a.StartTime, a.EndTime) {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *AppointmentRepo) overlapsLocked(a appointment.Appointment) bool {
	if a.Status != appointment.StatusBooked {
		return false
	}
	for _, e := range r.s.appointments {
		if e.ID != a.ID && e.ClinicID == a.ClinicID && e.Status == appointment.StatusBooked &&
			appointment.Overlaps(a.StartTime, a.EndTime, e.StartTime, e.EndTime) {
			return true
		}
	}
	return false
}

func (r *AppointmentRepo) Insert(_ context.Context, a *appointment.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	if r.overlapsLocked(*a) {
		return appointment.ErrOverlap
	}
	r.s.appointments[a.ID] = *a
	return nil
}

func (r *AppointmentRepo) UpdateSchedule(_ context.Context, id uuid.UUID, start, end time.Time) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	a, ok := r.s.appointments[id]
	if !ok || a.Status != appointment.StatusBooked {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.StartTime, a.EndTime, a.UpdatedAt = start, end, time.Now()
	if r.overlapsLocked(a) {
		return nil, appointment.ErrOverlap
	}
	r.s.appointments[id] = a
	return &a, nil
}

func (r *AppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to appointment.Status) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	a, ok := r.s.appointments[id]
	if !ok || a.Status != from {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.Status, a.UpdatedAt = to, time.Now()
	r.s.appointments[id] = a
	return &a, nil
}

func (r *AppointmentRepo) List(_ context.Context, c visibility.Criteria, f appointment.ListFilter) ([]appointment.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	var out []appointment.Appointment
	for _, a := range r.s.appointments {
		if c.Matches(a) && f.Matches(a) {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return page(out, f.Limit, f.Offset), nil
}

func (r *AppointmentRepo) FindOverdueBooked(_ context.Context, endedBefore time.Time, limit int) ([]appointment.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	var out []appointment.Appointment
	for _, a := range r.s.appointments {
		if a.Status == appointment.StatusBooked && a.EndTime.Before(endedBefore) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return page(out, limit, 0), nil
}

func (r *AppointmentRepo) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	ev.ID = int64(len(r.s.events) + 1)
	r.s.events = append(r.s.events, ev)
	return nil
}

func sortByStart(as []appointment.Appointment) {
	sort.Slice(as, func(i, j int) bool { return as[i].StartTime.Before(as[j].StartTime) })
}

// Prescriptions

type PrescriptionRepo struct{ s *Store }

func (r *PrescriptionRepo) Create(_ context.Context, p *prescription.Prescription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	cp := *p
	cp.Medications = append([]prescription.Medication(nil), p.Medications...)
	r.s.prescriptions[p.ID] = cp
	return nil
}

func (r *PrescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	p, ok := r.s.prescriptions[id]
	if !ok {
		return nil, prescription.ErrPrescriptionNotFound
	}
	return &p, nil
}

func (r *PrescriptionRepo) List(_ context.Context, c visibility.Criteria, f prescription.Filter) ([]prescription.Prescription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	var out []prescription.Prescription
	for _, p := range r.s.prescriptions {
		if !c.Matches(p) {
			continue
		}
		if f.PatientID != uuid.Nil && p.PatientID != f.PatientID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignedAt.After(out[j].SignedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (r *PrescriptionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	if _, ok := r.s.prescriptions[id]; !ok {
		return prescription.ErrPrescriptionNotFound
	}
	delete(r.s.prescriptions, id)
	return nil
}

// Voice logs

type VoiceLogRepo struct{ s *Store }

func (r *VoiceLogRepo) Create(_ context.Context, l *voicelog.Log) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail(); err != nil {
		return err
	}
	for _, e := range r.s.voiceLogs {
		if e.CallID == l.CallID {
			return voicelog.ErrDuplicateCall
		}
	}
	r.s.voiceLogs[l.ID] = *l
	return nil
}

func (r *VoiceLogRepo) GetByID(_ context.Context, id uuid.UUID) (*voicelog.Log, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	l, ok := r.s.voiceLogs[id]
	if !ok {
		return nil, voicelog.ErrLogNotFound
	}
	return &l, nil
}

func (r *VoiceLogRepo) List(_ context.Context, c visibility.Criteria, f voicelog.Filter) ([]voicelog.Log, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail(); err != nil {
		return nil, err
	}
	var out []voicelog.Log
	for _, l := range r.s.voiceLogs {
		if c.Matches(l) && f.Matches(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}
