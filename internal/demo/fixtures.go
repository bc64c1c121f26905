package demo

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
	"github.com/hackgods/clinic-scheduling/internal/voicelog"
)

// Options controls the generated dataset.
type Options struct {
	Seed              uint64
	Now               time.Time
	DoctorSubject     string
	DoctorEmail       string
	AdminSubject      string
	AdminEmail        string
	Clinics           int
	PatientsPerClinic int
	Days              int
	SlotsPerDay       int
}

func DefaultOptions() Options {
	return Options{
		Seed:              42,
		Now:               time.Now(),
		DoctorSubject:     "demo-doctor",
		DoctorEmail:       "doctor@demo.clinic",
		AdminSubject:      "demo-admin",
		AdminEmail:        "admin@demo.clinic",
		Clinics:           2,
		PatientsPerClinic: 8,
		Days:              14,
		SlotsPerDay:       4,
	}
}

type Dataset struct {
	Doctor        actor.Doctor
	Admin         actor.Admin
	Clinics       []clinic.Clinic
	Patients      []patient.Patient
	Appointments  []appointment.Appointment
	Prescriptions []prescription.Prescription
	VoiceLogs     []voicelog.Log
}

var (
	specialties = []string{"Family Medicine", "Dermatology", "Pediatrics", "Cardiology", "Physiotherapy"}
	medications = []prescription.Medication{
		{Name: "Amoxicillin", Dosage: "500mg", Frequency: "3x daily", Duration: "7 days"},
		{Name: "Ibuprofen", Dosage: "400mg", Frequency: "as needed", Duration: "5 days"},
		{Name: "Metformin", Dosage: "850mg", Frequency: "2x daily", Duration: "90 days"},
		{Name: "Lisinopril", Dosage: "10mg", Frequency: "daily", Duration: "30 days"},
		{Name: "Cetirizine", Dosage: "10mg", Frequency: "daily", Duration: "14 days"},
	}
	tags        = []string{"vip", "new", "chronic", "follow-up", "insurance-pending"}
	voiceIntent = []string{"book_appointment", "reschedule", "cancel", "prescription_refill", "question"}
	weekdays    = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
)

// Generate builds a consistent dataset: one doctor owning opts.Clinics
// clinics, patients in each, non-overlapping appointments around Now,
// prescriptions and voice call logs.
func Generate(opts Options) Dataset {
	f := gofakeit.New(opts.Seed)
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	doc := actor.Doctor{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("demo-doctor:"+opts.DoctorSubject)),
		UserID:    opts.DoctorSubject,
		EmailAddr: opts.DoctorEmail,
		Name:      "Dr. " + f.FirstName() + " " + f.LastName(),
		Plan:      actor.DefaultPlan,
		CreatedAt: now.AddDate(0, -6, 0),
	}
	ds := Dataset{
		Doctor: doc,
		Admin: actor.Admin{
			ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte("demo-admin:"+opts.AdminSubject)),
			UserID:      opts.AdminSubject,
			EmailAddr:   opts.AdminEmail,
			Name:        f.Name(),
			Permissions: []actor.Permission{actor.PermViewAll, actor.PermViewLogs},
		},
	}

	hours := make(map[string]clinic.Hours, len(weekdays))
	for _, d := range weekdays {
		hours[d] = clinic.Hours{Open: "08:00", Close: "18:00"}
	}

	for i := 0; i < opts.Clinics; i++ {
		c := clinic.Clinic{
			ID:             uuid.New(),
			OwnerDoctorID:  doc.ID,
			Name:           fmt.Sprintf("%s %s", f.City(), specialties[i%len(specialties)]),
			AddressLine:    f.Street(),
			City:           f.City(),
			State:          f.State(),
			PostalCode:     f.Zip(),
			Phone:          f.Phone(),
			OperatingHours: hours,
			CreatedAt:      doc.CreatedAt,
		}
		ds.Clinics = append(ds.Clinics, c)

		var clinicPatients []patient.Patient
		for j := 0; j < opts.PatientsPerClinic; j++ {
			dob := f.DateRange(now.AddDate(-90, 0, 0), now.AddDate(-1, 0, 0))
			p := patient.Patient{
				ID:        uuid.New(),
				DoctorID:  doc.ID,
				ClinicID:  c.ID,
				FirstName: f.FirstName(),
				LastName:  f.LastName(),
				DOB:       &dob,
				Sex:       []patient.Sex{patient.SexFemale, patient.SexMale, patient.SexOther}[f.Number(0, 2)],
				Phone:     f.Phone(),
				Email:     f.Email(),
				Consent: patient.Consent{
					Messaging:  f.Bool(),
					Marketing:  f.Bool(),
					VoiceCalls: f.Bool(),
				},
				Tags:      []string{tags[f.Number(0, len(tags)-1)]},
				CreatedAt: c.CreatedAt,
				UpdatedAt: c.CreatedAt,
			}
			clinicPatients = append(clinicPatients, p)
		}
		ds.Patients = append(ds.Patients, clinicPatients...)

		ds.Appointments = append(ds.Appointments, appointmentsFor(f, doc.ID, c.ID, clinicPatients, now, opts)...)

		for _, p := range clinicPatients[:len(clinicPatients)/2] {
			signed := f.DateRange(now.AddDate(0, -3, 0), now)
			ds.Prescriptions = append(ds.Prescriptions, prescription.Prescription{
				ID:           uuid.New(),
				DoctorID:     doc.ID,
				ClinicID:     c.ID,
				PatientID:    p.ID,
				Medications:  []prescription.Medication{medications[f.Number(0, len(medications)-1)]},
				Instructions: "Take with water.",
				FollowUp:     fmt.Sprintf("%d weeks", f.Number(1, 6)),
				SignedBy:     doc.Name,
				SignedAt:     signed,
				CreatedAt:    signed,
			})
		}
	}

	ds.VoiceLogs = voiceLogsFor(f, doc.ID, ds.Patients, now, opts.Clinics*3)
	return ds
}

func appointmentsFor(f *gofakeit.Faker, doctorID, clinicID uuid.UUID, patients []patient.Patient, now time.Time, opts Options) []appointment.Appointment {
	if len(patients) == 0 {
		return nil
	}
	var out []appointment.Appointment

	day0 := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())
	for d := -opts.Days / 2; d < opts.Days/2; d++ {
		day := day0.AddDate(0, 0, d)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for s := 0; s < opts.SlotsPerDay; s++ {
			// Slots are 45 minutes apart so the 30 minute bookings never overlap.
			start := day.Add(time.Duration(s) * 45 * time.Minute)
			end := appointment.DeriveEndTime(start)

			status := appointment.StatusBooked
			if end.Before(now) {
				status = []appointment.Status{
					appointment.StatusComplete, appointment.StatusComplete, appointment.StatusComplete,
					appointment.StatusCancelled, appointment.StatusNoShow,
				}[f.Number(0, 4)]
			}

			out = append(out, appointment.Appointment{
				ID:        uuid.New(),
				DoctorID:  doctorID,
				ClinicID:  clinicID,
				PatientID: patients[f.Number(0, len(patients)-1)].ID,
				StartTime: start,
				EndTime:   end,
				Status:    status,
				Channel:   []appointment.Channel{appointment.ChannelVoice, appointment.ChannelWeb, appointment.ChannelManual}[f.Number(0, 2)],
				CreatedAt: start.AddDate(0, 0, -7),
				UpdatedAt: start.AddDate(0, 0, -7),
			})
		}
	}
	return out
}

func voiceLogsFor(f *gofakeit.Faker, doctorID uuid.UUID, patients []patient.Patient, now time.Time, n int) []voicelog.Log {
	var out []voicelog.Log
	for i := 0; i < n; i++ {
		at := f.DateRange(now.AddDate(0, 0, -14), now)
		l := voicelog.Log{
			ID:          uuid.New(),
			DoctorID:    doctorID,
			CallID:      fmt.Sprintf("call-%s", uuid.NewString()[:8]),
			PhoneNumber: f.Phone(),
			CallType:    []voicelog.CallType{voicelog.CallInbound, voicelog.CallOutbound}[f.Number(0, 1)],
			Status:      []voicelog.CallStatus{voicelog.CallCompleted, voicelog.CallCompleted, voicelog.CallMissed, voicelog.CallFailed}[f.Number(0, 3)],
			Actions:     []voicelog.Action{},
			CreatedAt:   at,
		}
		// Every third call comes from an unknown number.
		if i%3 != 0 && len(patients) > 0 {
			p := patients[f.Number(0, len(patients)-1)]
			l.PatientID = &p.ID
			l.ClinicID = p.ClinicID
			l.PhoneNumber = p.Phone
		}
		if l.Status == voicelog.CallCompleted {
			l.DurationSeconds = f.Number(30, 600)
			score := f.Float64Range(0.55, 0.99)
			l.ConfidenceScore = &score
			transcript := "Caller asked to " + voiceIntent[f.Number(0, len(voiceIntent)-1)] + "."
			l.Transcript = &transcript
			l.Actions = append(l.Actions, voicelog.Action{
				Action:    voiceIntent[f.Number(0, len(voiceIntent)-1)],
				Timestamp: at.Add(time.Duration(l.DurationSeconds) * time.Second),
			})
		}
		out = append(out, l)
	}
	return out
}

// Load inserts ds into the store, replacing rows with the same IDs.
func (s *Store) Load(ds Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doctors[ds.Doctor.ID] = ds.Doctor
	if ds.Admin.ID != uuid.Nil {
		s.admins[ds.Admin.ID] = ds.Admin
	}
	for _, c := range ds.Clinics {
		s.clinics[c.ID] = c
	}
	for _, p := range ds.Patients {
		s.patients[p.ID] = clonePatient(p)
	}
	for _, a := range ds.Appointments {
		s.appointments[a.ID] = a
	}
	for _, p := range ds.Prescriptions {
		s.prescriptions[p.ID] = p
	}
	for _, l := range ds.VoiceLogs {
		s.voiceLogs[l.ID] = l
	}
}
