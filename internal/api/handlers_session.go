package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/clinic"
	"github.com/hackgods/clinic-scheduling/internal/dashboard"
)

func meHandler(clinics *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a := ActorFrom(r.Context())
		scope, ok := scopeFor(w, r, clinics)
		if !ok {
			return
		}

		resp := MeResponse{
			Kind:    string(a.Kind()),
			ID:      a.ActorID(),
			Email:   a.Email(),
			Name:    a.DisplayName(),
			Scope:   scope.String(),
			Clinics: scope.Clinics(),
		}
		switch v := a.(type) {
		case *actor.Doctor:
			resp.Plan = v.Plan
		case *actor.Admin:
			resp.SuperAdmin = v.SuperAdmin
			for _, p := range v.Permissions {
				resp.Permissions = append(resp.Permissions, string(p))
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// signOutHandler revokes the presented token and drops the session's
// dashboard state. The identity provider's own session is not touched.
func signOutHandler(revoker auth.Revoker, views *dashboard.Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", auth.ErrMissingToken.Error())
			return
		}

		if claims.ID != "" && claims.ExpiresAt != nil {
			if err := revoker.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("revoke token failed")
				writeError(w, http.StatusServiceUnavailable, "auth_unavailable", "could not sign out, retry later")
				return
			}
		}
		if sess := sessionFrom(r.Context()); sess != nil {
			stop := sess.OnChange(func(a actor.Actor) {
				if a == nil && views != nil {
					views.Forget(claims.Subject)
				}
			})
			sess.SignOut()
			stop()
		}

		zerolog.Ctx(r.Context()).Info().Str("subject", claims.Subject).Msg("signed out")
		w.WriteHeader(http.StatusNoContent)
	}
}

func listDoctorsHandler(doctors DoctorDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !actor.HasPermission(ActorFrom(r.Context()), actor.PermManageDoctors) {
			writeError(w, http.StatusForbidden, "forbidden", "manage_doctors permission required")
			return
		}

		limit := queryInt(r, "limit", 50)
		if limit <= 0 || limit > 200 {
			limit = 50
		}
		offset := queryInt(r, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		list, err := doctors.ListDoctors(r.Context(), limit, offset)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("list doctors failed")
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "backend is unavailable, retry later")
			return
		}

		resp := make([]DoctorResponse, 0, len(list))
		for _, d := range list {
			resp = append(resp, DoctorResponse{
				ID:               d.ID,
				Email:            d.EmailAddr,
				Name:             d.Name,
				Plan:             d.Plan,
				AppointmentsUsed: d.AppointmentsUsed,
				VoiceMinutesUsed: d.VoiceMinutesUsed,
				CreatedAt:        d.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
