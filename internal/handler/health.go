package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is anything with a cheap liveness check: the database, the recipe
// cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the service can reach its storage.
type HealthHandler struct {
	db     Pinger
	cache  Pinger // optional
	logger *slog.Logger
}

func NewHealthHandler(db, cache Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, logger: logger}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache,omitempty"`
}

// HandleHealth: GET /healthz
//
// 503 only when the database is down. A down cache is reported but the
// service still works without it.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("health check: database unreachable", slog.String("error", err.Error()))
		resp.Status, resp.Database = "unavailable", "unreachable"
		status = http.StatusServiceUnavailable
	}

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn("health check: cache unreachable", slog.String("error", err.Error()))
			resp.Cache = "unreachable"
		}
	}

	writeJSON(w, status, resp)
}
