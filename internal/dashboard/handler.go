package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nniahq/portal-api/pkg/logging"
)

// StatsSource provides aggregated counters for the overview endpoint.
type StatsSource interface {
	GetStats(ctx context.Context, clientID string) (*Stats, error)
}

// Handler serves the portal dashboard endpoints.
type Handler struct {
	stats    StatsSource
	previews PreviewStore
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

func NewHandler(stats StatsSource, previews PreviewStore, gatherer prometheus.Gatherer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		stats:    stats,
		previews: previews,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Overview handles GET /nnia/dashboard?clientId=...
// The response combines activity counters with the most recent
// upcoming-appointments preview.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		jsonError(w, http.StatusBadRequest, "clientId query parameter is required")
		return
	}

	stats, err := h.stats.GetStats(r.Context(), clientID)
	if err != nil {
		h.logger.Error("dashboard stats failed", "client_id", clientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard stats")
		return
	}

	resp := map[string]any{"stats": stats}

	preview, err := h.previews.Get(r.Context(), clientID)
	switch {
	case err == nil:
		resp["preview"] = preview
	case errors.Is(err, ErrSnapshotNotFound):
		// No refresh has run yet for this client.
	default:
		h.logger.Error("dashboard preview read failed", "client_id", clientID, "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// RefreshLatency handles GET /nnia/dashboard/refresh-latency.
func (h *Handler) RefreshLatency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshotRefreshLatency(h.gatherer))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
