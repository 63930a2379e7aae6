package billing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nniahq/portal-api/pkg/logging"
)

// Handler serves the portal billing endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Catalog handles GET /nnia/billing/catalog.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"plans": Plans(),
		"packs": TokenPacks(),
	})
}

// Subscription handles GET /nnia/billing/subscription?clientId=...
func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		jsonError(w, http.StatusBadRequest, "clientId query parameter is required")
		return
	}
	sub, err := h.service.Subscription(r.Context(), clientID)
	if err != nil {
		h.logger.Error("get subscription failed", "client_id", clientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

type checkoutRequest struct {
	ClientID string `json:"client_id"`
	PlanID   string `json:"plan_id,omitempty"`
	PackID   string `json:"pack_id,omitempty"`
}

// Checkout handles POST /nnia/billing/checkout, for either a plan upgrade or
// a token pack purchase.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ClientID == "" {
		jsonError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	var (
		resp *CheckoutResponse
		err  error
	)
	switch {
	case req.PlanID != "" && req.PackID != "":
		jsonError(w, http.StatusBadRequest, "provide plan_id or pack_id, not both")
		return
	case req.PlanID != "":
		resp, err = h.service.CheckoutPlan(r.Context(), req.ClientID, req.PlanID)
	case req.PackID != "":
		resp, err = h.service.CheckoutPack(r.Context(), req.ClientID, req.PackID)
	default:
		jsonError(w, http.StatusBadRequest, "plan_id or pack_id is required")
		return
	}
	if err != nil {
		if strings.Contains(err.Error(), "unknown") {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("checkout failed", "client_id", req.ClientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create checkout session")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type changePlanRequest struct {
	ClientID string `json:"client_id"`
	PlanID   string `json:"plan_id"`
}

// ChangePlan handles POST /nnia/billing/subscription/change.
func (h *Handler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	var req changePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ClientID == "" || req.PlanID == "" {
		jsonError(w, http.StatusBadRequest, "client_id and plan_id are required")
		return
	}

	sub, err := h.service.ChangePlan(r.Context(), req.ClientID, req.PlanID)
	if err != nil {
		if strings.Contains(err.Error(), "unknown") {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("change plan failed", "client_id", req.ClientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to change plan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

type cancelRequest struct {
	ClientID string `json:"client_id"`
}

// Cancel handles POST /nnia/billing/subscription/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ClientID == "" {
		jsonError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	if err := h.service.Cancel(r.Context(), req.ClientID); err != nil {
		h.logger.Error("cancel subscription failed", "client_id", req.ClientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to cancel subscription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type consumeRequest struct {
	ClientID string `json:"client_id"`
	Text     string `json:"text"`
}

// Consume handles POST /nnia/billing/consume.
func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	var req consumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ClientID == "" {
		jsonError(w, http.StatusBadRequest, "client_id is required")
		return
	}

	sub, err := h.service.Consume(r.Context(), req.ClientID, req.Text)
	if err != nil {
		if errors.Is(err, ErrInsufficientTokens) {
			jsonError(w, http.StatusPaymentRequired, "insufficient tokens")
			return
		}
		h.logger.Error("consume tokens failed", "client_id", req.ClientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to consume tokens")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

// Payments handles GET /nnia/billing/payments?clientId=...
func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		jsonError(w, http.StatusBadRequest, "clientId query parameter is required")
		return
	}
	payments, err := h.service.Payments(r.Context(), clientID)
	if err != nil {
		h.logger.Error("list payments failed", "client_id", clientID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list payments")
		return
	}
	if payments == nil {
		payments = []Payment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
