package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ttsoftware/ragline/internal/knowledge"
)

// Counter reports how many records the knowledge collection holds.
// *knowledge.Store satisfies it.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// healthHandler serves the liveness and readiness probes.
type healthHandler struct {
	pool   *pgxpool.Pool
	store  Counter
	logger *slog.Logger
}

// liveness returns 200 OK if the process is alive.
func (h *healthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// readiness returns 200 OK when the database is reachable and the knowledge
// collection exists. A missing collection means the store was never seeded,
// so the responder cannot ground any answer yet.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database pool not configured", h.logger)
		return
	}
	if err := h.pool.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database not ready", h.logger)
		return
	}

	records := int64(-1)
	if h.store != nil {
		n, err := h.store.Count(r.Context())
		switch {
		case errors.Is(err, knowledge.ErrCollectionNotFound):
			writeError(w, http.StatusServiceUnavailable, "not_ready", "knowledge collection not initialized", h.logger)
			return
		case err != nil:
			h.logger.Error("readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "not_ready", "knowledge store not ready", h.logger)
			return
		}
		records = n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ready",
		"records": records,
	}, h.logger)
}
