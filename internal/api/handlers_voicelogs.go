package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/voicelog"
)

func listVoiceLogsHandler(clinics *clinic.Service, svc *voicelog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := scopeFor(w, r, clinics)
		if !ok {
			return
		}
		q := r.URL.Query()
		list := svc.List(r.Context(), ActorFrom(r.Context()), scope, voicelog.Filter{
			Status:   voicelog.CallStatus(q.Get("status")),
			CallType: voicelog.CallType(q.Get("call_type")),
			Limit:    queryInt(r, "limit", 0),
			Offset:   queryInt(r, "offset", 0),
		})
		writeJSON(w, http.StatusOK, listOf(scope, list))
	}
}

func getVoiceLogHandler(svc *voicelog.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "voice_log_id")
		if !ok {
			return
		}
		l, err := svc.Get(r.Context(), ActorFrom(r.Context()), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}
