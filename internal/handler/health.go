package handler

import (
	"log/slog"
	"net/http"
	"time"

	infraredis "github.com/cashflowpro/cashflowpro/internal/infrastructure/redis"
	"github.com/cashflowpro/cashflowpro/pkg/database"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pool   *database.ConnectionPool
	redis  *infraredis.Client // nil when the summary cache runs in-process
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(pool *database.ConnectionPool, redis *infraredis.Client, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{pool: pool, redis: redis, logger: logger}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Time   time.Time         `json:"time"`
}

// Live handles GET /healthz
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: time.Now().UTC()})
}

// Ready handles GET /readyz; it fails when a backing store is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := http.StatusOK

	if err := h.pool.Health(r.Context()); err != nil {
		h.logger.Warn("database unhealthy", slog.String("error", err.Error()))
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.Ping(r.Context()); err != nil {
			h.logger.Warn("redis unhealthy", slog.String("error", err.Error()))
			checks["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	writeJSON(w, status, healthResponse{Status: state, Checks: checks, Time: time.Now().UTC()})
}
