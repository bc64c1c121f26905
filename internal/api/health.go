package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// BrokerStatus reports whether the voice agent broker connection is up.
type BrokerStatus interface {
	IsConnected() bool
}

type HealthHandler struct {
	pgPool   *pgxpool.Pool
	redis    *redis.Client
	broker   BrokerStatus
	env      string
	version  string
	demoMode bool
}

func NewHealthHandler(pgPool *pgxpool.Pool, redis *redis.Client, broker BrokerStatus, env, version string, demoMode bool) *HealthHandler {
	return &HealthHandler{
		pgPool:   pgPool,
		redis:    redis,
		broker:   broker,
		env:      env,
		version:  version,
		demoMode: demoMode,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	})
}

// Readiness fails on Postgres. It degrades on Redis, since admissions fall
// back to database constraints without the lock, and on a lost broker
// connection, which only pauses call ingestion.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	switch {
	case h.pgPool != nil:
		pgCtx, pgCancel := context.WithTimeout(ctx, time.Second)
		err := h.pgPool.Ping(pgCtx)
		pgCancel()
		if err != nil {
			deps["postgres"] = "down"
			status = "error"
		} else {
			deps["postgres"] = "ok"
		}
	case h.demoMode:
		deps["storage"] = "demo"
	}

	if h.redis != nil {
		redisCtx, redisCancel := context.WithTimeout(ctx, time.Second)
		err := h.redis.Ping(redisCtx).Err()
		redisCancel()
		if err != nil {
			deps["redis"] = "down"
			if status == "ok" {
				status = "degraded"
			}
		} else {
			deps["redis"] = "ok"
		}
	} else {
		deps["lock"] = "local"
	}

	if h.broker != nil {
		if h.broker.IsConnected() {
			deps["mqtt"] = "connected"
		} else {
			deps["mqtt"] = "disconnected"
			if status == "ok" {
				status = "degraded"
			}
		}
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	})
}
