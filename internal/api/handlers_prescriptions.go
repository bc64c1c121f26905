package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

func listPrescriptionsHandler(clinics *clinic.Service, svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeFor(w, r, clinics)
		if !ok {
			return
		}
		f := prescription.Filter{
			Limit:  queryInt(r, "limit", 0),
			Offset: queryInt(r, "offset", 0),
		}
		if raw := r.URL.Query().Get("patient_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeServiceError(w, r, apperr.Validation("patient_id", "must be a valid UUID"))
				return
			}
			f.PatientID = id
		}
		list := svc.List(r.Context(), ActorFrom(r.Context()), scope, f)
		writeJSON(w, http.StatusOK, listOf(scope, list))
	}
}

func createPrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePrescriptionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		p, err := svc.Create(r.Context(), ActorFrom(r.Context()), &prescription.Prescription{
			PatientID:    req.PatientID,
			Medications:  req.Medications,
			Instructions: req.Instructions,
			FollowUp:     req.FollowUp,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func getPrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "prescription_id")
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

func deletePrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "prescription_id")
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

func sendPrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "prescription_id")
		if !ok {
			return
		}
		var req SendPrescriptionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		d, err := svc.Send(r.Context(), ActorFrom(r.Context()), id, req.Channel)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
