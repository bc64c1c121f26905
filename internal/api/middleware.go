package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/auth"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	sessionKey   contextKey = "session"
)

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware attaches a request-scoped logger and logs method, route,
// status and duration once the request is done.
func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().Str("request_id", GetRequestID(r.Context())).Logger()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r.WithContext(reqLogger.WithContext(r.Context())))

			ev := reqLogger.Info()
			if wrapped.statusCode >= http.StatusInternalServerError {
				ev = reqLogger.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// MetricsMiddleware records request counts and latency by route pattern.
func MetricsMiddleware(m *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.RecordHTTPRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}

type session struct {
	claims *auth.Claims
	actor  *actor.Session
}

// AuthMiddleware verifies the bearer token and resolves the actor for the
// rest of the request.
func AuthMiddleware(verifier *auth.Verifier, revoker auth.Revoker, resolver actor.Resolving) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, err := verifier.Verify(auth.BearerToken(r.Header.Get("Authorization")))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
				return
			}

			revoked, err := revoker.IsRevoked(ctx, claims.ID)
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("revocation check failed")
				writeError(w, http.StatusServiceUnavailable, "auth_unavailable", "could not verify session")
				return
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "unauthenticated", auth.ErrRevokedToken.Error())
				return
			}

			sess := actor.NewSession(resolver)
			if _, err := sess.Start(ctx, claims.Identity()); err != nil {
				var verr *apperr.ValidationError
				if errors.As(err, &verr) {
					writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
					return
				}
				writeServiceError(w, r, err)
				return
			}

			ctx = context.WithValue(ctx, sessionKey, &session{claims: claims, actor: sess})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom returns the resolved actor, nil outside AuthMiddleware or
// after sign-out.
func ActorFrom(ctx context.Context) actor.Actor {
	if s, ok := ctx.Value(sessionKey).(*session); ok {
		return s.actor.Current()
	}
	return nil
}

func sessionFrom(ctx context.Context) *actor.Session {
	if s, ok := ctx.Value(sessionKey).(*session); ok {
		return s.actor
	}
	return nil
}

func claimsFrom(ctx context.Context) *auth.Claims {
	if s, ok := ctx.Value(sessionKey).(*session); ok {
		return s.claims
	}
	return nil
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
