package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nniahq/portal-api/pkg/logging"
)

var stripeTracer = otel.Tracer("nnia.internal.billing.stripe")

// CheckoutParams describes a Stripe Checkout session to create.
type CheckoutParams struct {
	ClientID string
	// Mode is "subscription" for plans or "payment" for token packs.
	Mode       string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CheckoutResponse carries the hosted checkout URL back to the portal.
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

type stripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StripeClient drives the Stripe REST API directly with form-encoded
// requests. Dry-run mode returns fake URLs without calling Stripe.
type StripeClient struct {
	secretKey  string
	successURL string
	cancelURL  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

func NewStripeClient(secretKey, successURL, cancelURL string, dryRun bool, logger *logging.Logger) *StripeClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeClient{
		secretKey:  secretKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		dryRun:     dryRun,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeClient) WithBaseURL(baseURL string) *StripeClient {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// CreateCheckoutSession creates a hosted checkout session for a plan or pack.
func (s *StripeClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutResponse, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_checkout_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("nnia.client_id", params.ClientID),
		attribute.String("nnia.checkout_mode", params.Mode),
	)

	if params.Mode != "subscription" && params.Mode != "payment" {
		return nil, fmt.Errorf("billing: invalid checkout mode %q", params.Mode)
	}
	if params.PriceID == "" {
		return nil, fmt.Errorf("billing: price id is required")
	}

	if s.dryRun {
		fakeID := "cs_dryrun_" + uuid.New().String()[:8]
		s.logger.Info("stripe dry run: skipping checkout session creation",
			"client_id", params.ClientID, "mode", params.Mode, "price_id", params.PriceID)
		return &CheckoutResponse{
			URL:       fmt.Sprintf("https://checkout.stripe.com/dry-run/%s", fakeID),
			SessionID: fakeID,
		}, nil
	}

	successURL := params.SuccessURL
	if successURL == "" {
		successURL = s.successURL
	}
	cancelURL := params.CancelURL
	if cancelURL == "" {
		cancelURL = s.cancelURL
	}

	form := url.Values{}
	form.Set("mode", params.Mode)
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	if successURL != "" {
		form.Set("success_url", successURL)
	}
	if cancelURL != "" {
		form.Set("cancel_url", cancelURL)
	}
	form.Set("metadata[client_id]", params.ClientID)

	var parsed stripeCheckoutSession
	if err := s.postForm(ctx, "/v1/checkout/sessions", form, &parsed); err != nil {
		return nil, err
	}
	if parsed.URL == "" {
		return nil, fmt.Errorf("billing: stripe response missing checkout url")
	}
	return &CheckoutResponse{URL: parsed.URL, SessionID: parsed.ID}, nil
}

// CancelSubscription flags the subscription to end at the current period.
func (s *StripeClient) CancelSubscription(ctx context.Context, subscriptionID string) error {
	ctx, span := stripeTracer.Start(ctx, "stripe.cancel_subscription")
	defer span.End()
	span.SetAttributes(attribute.String("nnia.stripe_subscription_id", subscriptionID))

	if subscriptionID == "" {
		return fmt.Errorf("billing: subscription id is required")
	}
	if s.dryRun {
		s.logger.Info("stripe dry run: skipping subscription cancel", "subscription_id", subscriptionID)
		return nil
	}

	form := url.Values{}
	form.Set("cancel_at_period_end", "true")
	return s.postForm(ctx, "/v1/subscriptions/"+subscriptionID, form, nil)
}

type stripeSubscription struct {
	ID    string `json:"id"`
	Items struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	} `json:"items"`
}

// UpdateSubscription swaps the subscription's price to a different plan.
func (s *StripeClient) UpdateSubscription(ctx context.Context, subscriptionID, priceID string) error {
	ctx, span := stripeTracer.Start(ctx, "stripe.update_subscription")
	defer span.End()
	span.SetAttributes(
		attribute.String("nnia.stripe_subscription_id", subscriptionID),
		attribute.String("nnia.stripe_price_id", priceID),
	)

	if subscriptionID == "" || priceID == "" {
		return fmt.Errorf("billing: subscription id and price id are required")
	}
	if s.dryRun {
		s.logger.Info("stripe dry run: skipping subscription update",
			"subscription_id", subscriptionID, "price_id", priceID)
		return nil
	}

	var sub stripeSubscription
	if err := s.getJSON(ctx, "/v1/subscriptions/"+subscriptionID, &sub); err != nil {
		return err
	}
	if len(sub.Items.Data) == 0 {
		return fmt.Errorf("billing: subscription %s has no items", subscriptionID)
	}

	form := url.Values{}
	form.Set("items[0][id]", sub.Items.Data[0].ID)
	form.Set("items[0][price]", priceID)
	form.Set("proration_behavior", "create_prorations")
	return s.postForm(ctx, "/v1/subscriptions/"+subscriptionID, form, nil)
}

func (s *StripeClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("billing: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", s.apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("billing: stripe api status %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("billing: stripe decode: %w", err)
	}
	return nil
}

func (s *StripeClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("billing: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", s.apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("billing: stripe api status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("billing: stripe decode: %w", err)
	}
	return nil
}
