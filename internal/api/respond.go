package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/dashboard"
	"github.com/hackgods/clinic-scheduling/internal/prescription"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps service failures onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *apperr.ValidationError
		nerr *apperr.NotFoundError
		cerr *apperr.ConflictError
		terr *apperr.TransitionError
		serr *apperr.StorageError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_failed", Details: verr.Reason, Field: verr.Field})
	case errors.As(err, &nerr):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &cerr):
		resp := ErrorResponse{Error: "conflict", Details: cerr.Reason}
		if cerr.ConflictingAppointmentID != uuid.Nil {
			id := cerr.ConflictingAppointmentID
			resp.ConflictingAppointmentID = &id
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.As(err, &terr):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, appointment.ErrClinicBusy):
		writeError(w, http.StatusConflict, "clinic_busy", err.Error())
	case errors.Is(err, dashboard.ErrStale):
		writeError(w, http.StatusConflict, "superseded", err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, prescription.ErrDeliveryFailed):
		writeError(w, http.StatusBadGateway, "delivery_failed", err.Error())
	case errors.As(err, &serr):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("storage failure")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "backend is unavailable, retry later")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON: "+err.Error())
		return false
	}
	return true
}

func parseUUIDParam(w http.ResponseWriter, raw, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt returns def when the parameter is absent or not a number.
func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
