package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
)

const DefaultDuration = 30 * time.Minute

const clockLayout = "15:04"

// DeriveEndTime adds DefaultDuration to start, clamping to 23:59 of the same
// day instead of rolling over midnight.
func DeriveEndTime(start time.Time) time.Time {
	end := start.Add(DefaultDuration)

	y, m, d := start.Date()
	ey, em, ed := end.Date()
	if y != ey || m != em || d != ed {
		return time.Date(y, m, d, 23, 59, 0, 0, start.Location())
	}
	return end
}

// DeriveEndClock is DeriveEndTime over "HH:MM" wall clock strings.
func DeriveEndClock(start string) (string, error) {
	t, err := time.Parse(clockLayout, start)
	if err != nil {
		return "", apperr.Validation("start", "must be HH:MM")
	}
	return DeriveEndTime(t).Format(clockLayout), nil
}

// Overlaps is the half-open interval test: [aStart, aEnd) and [bStart, bEnd)
// intersect iff aStart < bEnd and aEnd > bStart.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FindConflict returns the first booked appointment at the candidate's
// clinic whose interval overlaps the candidate. The candidate's own ID is
// skipped.
func FindConflict(c Candidate, existing []Appointment) *Appointment {
	for i := range existing {
		e := &existing[i]
		if e.ClinicID != c.ClinicID || e.Status != StatusBooked {
			continue
		}
		if c.ID != uuid.Nil && e.ID == c.ID {
			continue
		}
		if Overlaps(c.StartTime, c.EndTime, e.StartTime, e.EndTime) {
			return e
		}
	}
	return nil
}

func CheckConflict(c Candidate, existing []Appointment) bool {
	return FindConflict(c, existing) != nil
}

// endOrDefault fills a missing end with DeriveEndTime. A start so close to
// midnight that the clamped default leaves no room is reported against
// end_time, asking the caller to send one.
func endOrDefault(start, end time.Time) (time.Time, error) {
	if start.IsZero() || !end.IsZero() {
		return end, nil
	}
	derived := DeriveEndTime(start)
	if !derived.After(start) {
		return time.Time{}, apperr.Validation("end_time", "default duration does not fit before midnight, send end_time explicitly")
	}
	return derived, nil
}

func validateInterval(start, end time.Time) error {
	if start.IsZero() {
		return apperr.Validation("start_time", "is required")
	}
	if end.IsZero() {
		return apperr.Validation("end_time", "is required")
	}
	if !start.Before(end) {
		return apperr.Validation("end_time", "must be after start_time")
	}
	return nil
}

// Admit builds a booked appointment from c, or explains why it may not be
// admitted. cl is the clinic named by c; a doctor may only book into clinics
// it owns. existing must hold the clinic's booked appointments around c.
func Admit(a actor.Actor, cl *clinic.Clinic, c Candidate, existing []Appointment, now time.Time) (*Appointment, error) {
	if err := validateInterval(c.StartTime, c.EndTime); err != nil {
		return nil, err
	}
	if c.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id", "is required")
	}
	if c.Channel == "" {
		c.Channel = ChannelManual
	}
	if !c.Channel.Valid() {
		return nil, apperr.Validation("channel", "must be voice, web or manual")
	}
	if cl == nil || cl.ID != c.ClinicID || !clinic.CanActOn(a, cl) {
		return nil, apperr.NotFound("clinic", c.ClinicID)
	}

	if hit := FindConflict(c, existing); hit != nil {
		return nil, &apperr.ConflictError{Reason: "overlapping booking", ConflictingAppointmentID: hit.ID}
	}

	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Appointment{
		ID:        id,
		DoctorID:  cl.OwnerDoctorID,
		ClinicID:  cl.ID,
		PatientID: c.PatientID,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		Status:    StatusBooked,
		Channel:   c.Channel,
		Notes:     c.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Transition moves a booked appointment to a terminal status.
func Transition(appt Appointment, to Status, now time.Time) (Appointment, error) {
	if !to.Terminal() {
		return appt, apperr.Validation("status", "must be complete, cancelled or no_show")
	}
	if appt.Status != StatusBooked {
		return appt, &apperr.TransitionError{From: string(appt.Status), To: string(to), Reason: "not in booked state"}
	}
	appt.Status = to
	appt.UpdatedAt = now
	return appt, nil
}
