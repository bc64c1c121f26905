package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/patient"
)

func listPatientsHandler(clinics *clinic.Service, svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeFor(w, r, clinics)
		if !ok {
			return
		}
		q := r.URL.Query()
		list := svc.List(r.Context(), ActorFrom(r.Context()), scope, patient.Filter{
			Search: q.Get("q"),
			Tag:    q.Get("tag"),
			Limit:  queryInt(r, "limit", 0),
			Offset: queryInt(r, "offset", 0),
		})
		writeJSON(w, http.StatusOK, listOf(scope, list))
	}
}

func createPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p patient.Patient
		if !decodeJSON(w, r, &p) {
			return
		}
		created, err := svc.Create(r.Context(), ActorFrom(r.Context()), &p)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func getPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "patient_id")
		if !ok {
			return
		}
		p, err := svc.Get(r.Context(), ActorFrom(r.Context()), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func updatePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "patient_id")
		if !ok {
			return
		}
		var patch patient.Patch
		if !decodeJSON(w, r, &patch) {
			return
		}
		p, err := svc.Update(r.Context(), ActorFrom(r.Context()), id, patch)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func deletePatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "patient_id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), ActorFrom(r.Context()), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
