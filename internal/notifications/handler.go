package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nniahq/portal-api/pkg/logging"
)

// Store is the persistence surface the handler needs.
type Store interface {
	ListByClient(ctx context.Context, clientID string) ([]Notification, error)
	Create(ctx context.Context, n Notification) (*Notification, error)
	MarkRead(ctx context.Context, id string) error
	UnreadCount(ctx context.Context, clientID string) (int, error)
}

// Handler serves the portal notification endpoints.
type Handler struct {
	store  Store
	logger *logging.Logger
}

func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// List handles GET /nnia/notifications?clientId=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		jsonError(w, http.StatusBadRequest, "clientId query parameter is required")
		return
	}

	notifs, err := h.store.ListByClient(r.Context(), clientID)
	if err != nil {
		h.logger.Error("list notifications failed", "client_id", clientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifs == nil {
		notifs = []Notification{}
	}

	unread, err := h.store.UnreadCount(r.Context(), clientID)
	if err != nil {
		h.logger.Error("unread count failed", "client_id", clientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to count unread notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifs,
		"unread":        unread,
	})
}

// Create handles POST /nnia/notifications.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var n Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.store.Create(r.Context(), n)
	if err != nil {
		if strings.Contains(err.Error(), "required") {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("create notification failed", "client_id", n.ClientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create notification")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"notification": created})
}

// MarkRead handles POST /nnia/notifications/{id}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.MarkRead(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			jsonError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.logger.Error("mark notification read failed", "id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
