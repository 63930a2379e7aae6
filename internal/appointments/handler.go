package appointments

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
	ListByClient(ctx context.Context, clientID string) ([]Appointment, error)
	Create(ctx context.Context, a Appointment) (*Appointment, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Appointment, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the appointments API.
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

// List returns all appointments for a client.
// GET /nnia/appointments?clientId=...
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.URL.Query().Get("clientId"))
	if clientID == "" {
		jsonError(w, "clientId required", http.StatusBadRequest)
		return
	}

	appts, err := h.store.ListByClient(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to list appointments", "client_id", clientID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if appts == nil {
		appts = []Appointment{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// Create books a new appointment.
// POST /nnia/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var a Appointment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(a.ClientID) == "" {
		jsonError(w, "client_id required", http.StatusBadRequest)
		return
	}
	if _, err := a.StartsAt(); err != nil {
		jsonError(w, "invalid date/time", http.StatusBadRequest)
		return
	}

	created, err := h.store.Create(r.Context(), a)
	if err != nil {
		h.logger.Error("failed to create appointment", "client_id", a.ClientID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"appointment": created})
}

// updateRequest mirrors UpdateParams with JSON field names.
type updateRequest struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Type   *string `json:"type"`
	Origin *string `json:"origin"`
	Date   *string `json:"date"`
	Time   *string `json:"time"`
	Status *Status `json:"status"`
}

// Update modifies an appointment.
// PUT /nnia/appointments/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		jsonError(w, "id required", http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.store.Update(r.Context(), id, UpdateParams{
		Name:   req.Name,
		Email:  req.Email,
		Type:   req.Type,
		Origin: req.Origin,
		Date:   req.Date,
		Time:   req.Time,
		Status: req.Status,
	})
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update appointment", "id", id, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"appointment": updated})
}

// Delete removes an appointment.
// DELETE /nnia/appointments/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		jsonError(w, "id required", http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete appointment", "id", id, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
