package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
)

func listAppointmentsHandler(clinics *clinic.Service, svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeFor(w, r, clinics)
		if !ok {
			return
		}
		f, err := appointmentFilter(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		list := svc.List(r.Context(), ActorFrom(r.Context()), scope, f)
		writeJSON(w, http.StatusOK, listOf(scope, list))
	}
}

func appointmentFilter(r *http.Request) (appointment.ListFilter, error) {
	q := r.URL.Query()
	f := appointment.ListFilter{
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
	if raw := q.Get("status"); raw != "" {
		st, ok := appointment.ParseStatus(raw)
		if !ok {
			return f, apperr.Validation("status", "must be booked, complete, cancelled or no_show")
		}
		f.Status = st
	}
	if raw := q.Get("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, apperr.Validation("patient_id", "must be a valid UUID")
		}
		f.PatientID = id
	}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		if raw := q.Get(p.key); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return f, apperr.Validation(p.key, "must be an RFC 3339 timestamp")
			}
			*p.dst = t
		}
	}
	return f, nil
}

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		appt, err := svc.Admit(r.Context(), ActorFrom(r.Context()), req.candidate())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)
	}
}

func checkAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		hit, err := svc.Check(r.Context(), ActorFrom(r.Context()), req.candidate())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp := CheckResponse{Conflict: hit != nil}
		if hit != nil {
			resp.ConflictingAppointmentID = &hit.ID
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// defaultEndHandler accepts either "HH:MM" or an RFC 3339 timestamp.
func defaultEndHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			writeJSON(w, http.StatusOK, DefaultEndResponse{
				Start: start,
				End:   appointment.DeriveEndTime(t).Format(time.RFC3339),
			})
			return
		}
		end, err := appointment.DeriveEndClock(start)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, DefaultEndResponse{Start: start, End: end})
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "appointment_id")
		if !ok {
			return
		}
		appt, err := svc.Get(r.Context(), ActorFrom(r.Context()), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "appointment_id")
		if !ok {
			return
		}
		var req RescheduleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		var end time.Time
		if req.EndTime != nil {
			end = *req.EndTime
		}
		appt, err := svc.Reschedule(r.Context(), ActorFrom(r.Context()), id, req.StartTime, end)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func changeStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "appointment_id")
		if !ok {
			return
		}
		var req StatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		to, valid := appointment.ParseStatus(req.Status)
		if !valid {
			writeServiceError(w, r, apperr.Validation("status", "must be complete, cancelled or no_show"))
			return
		}
		appt, err := svc.ChangeStatus(r.Context(), ActorFrom(r.Context()), id, to)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}
