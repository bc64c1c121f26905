package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/dashboard"
	"github.com/hackgods/clinic-scheduling/internal/patient"
	"github.com/hackgods/clinic-scheduling/internal/report"
)

func dashboardHandler(clinics *clinic.Service, views *dashboard.Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeFor(w, r, clinics)
		if !ok {
			return
		}
		view := views.For(claimsFrom(r.Context()).Subject)
		ov, err := view.Refresh(r.Context(), ActorFrom(r.Context()), scope)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ov)
	}
}

func appointmentsReportHandler(clinics *clinic.Service, appts *appointment.Service, patients *patient.Service, loc *time.Location) http.HandlerFunc {
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
		f.Limit = 500

		a := ActorFrom(r.Context())
		rows := appts.List(r.Context(), a, scope, f)

		names := report.Names{
			Clinics:  make(map[uuid.UUID]string),
			Patients: make(map[uuid.UUID]string),
		}
		for _, c := range scope.Clinics() {
			names.Clinics[c.ID] = c.Name
		}
		for _, row := range rows {
			if _, seen := names.Patients[row.PatientID]; seen {
				continue
			}
			// Unreadable patients fall back to their ID in the sheet.
			if p, err := patients.Get(r.Context(), a, row.PatientID); err == nil {
				names.Patients[row.PatientID] = p.FullName()
			} else {
				names.Patients[row.PatientID] = ""
			}
		}

		data, err := report.Appointments(rows, names, loc)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", report.ContentTypeXLSX)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=appointments-%s.xlsx", scope.String()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
