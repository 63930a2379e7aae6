package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nniahq/portal-api/pkg/logging"
)

// Handler serves the real-time endpoint backed by the clock source.
type Handler struct {
	source *Source
	logger *logging.Logger
}

func NewHandler(source *Source, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{source: source, logger: logger}
}

// GetRealTime returns the resolved current instant.
// GET /nnia/real-time
func (h *Handler) GetRealTime(w http.ResponseWriter, r *http.Request) {
	res := h.source.Resolve(r.Context())

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"date":    res.Instant.UTC().Format(time.RFC3339),
		"source":  res.Source,
	})
}
