package billing

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nniahq/portal-api/pkg/logging"
)

var tracer = otel.Tracer("nnia.internal.billing")

// checkoutClient is the Stripe surface the service needs.
type checkoutClient interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutResponse, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	UpdateSubscription(ctx context.Context, subscriptionID, priceID string) error
}

// subscriptionStore is the persistence surface the service needs.
type subscriptionStore interface {
	GetByClient(ctx context.Context, clientID string) (*Subscription, error)
	SetPlan(ctx context.Context, clientID, planID, stripeSubscriptionID string) (*Subscription, error)
	AddTokens(ctx context.Context, clientID string, tokens int64) (*Subscription, error)
	ConsumeTokens(ctx context.Context, clientID string, tokens int64) (*Subscription, error)
	CancelSubscription(ctx context.Context, clientID string) error
	ListPayments(ctx context.Context, clientID string) ([]Payment, error)
}

// Service coordinates the catalog, the subscription store and Stripe.
type Service struct {
	store  subscriptionStore
	stripe checkoutClient
	logger *logging.Logger
}

func NewService(store subscriptionStore, stripe checkoutClient, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, stripe: stripe, logger: logger}
}

// Subscription returns the client's current subscription, defaulting to Free.
func (s *Service) Subscription(ctx context.Context, clientID string) (*Subscription, error) {
	return s.store.GetByClient(ctx, clientID)
}

// CheckoutPlan creates a Stripe subscription checkout for a paid plan.
func (s *Service) CheckoutPlan(ctx context.Context, clientID, planID string) (*CheckoutResponse, error) {
	ctx, span := tracer.Start(ctx, "billing.checkout_plan")
	defer span.End()
	span.SetAttributes(
		attribute.String("nnia.client_id", clientID),
		attribute.String("nnia.plan_id", planID),
	)

	plan, ok := PlanByID(planID)
	if !ok {
		return nil, fmt.Errorf("billing: unknown plan %q", planID)
	}
	if plan.StripePriceID == "" {
		return nil, fmt.Errorf("billing: plan %q has no checkout price", planID)
	}

	return s.stripe.CreateCheckoutSession(ctx, CheckoutParams{
		ClientID: clientID,
		Mode:     "subscription",
		PriceID:  plan.StripePriceID,
	})
}

// CheckoutPack creates a one-time Stripe checkout for a token pack.
func (s *Service) CheckoutPack(ctx context.Context, clientID, packID string) (*CheckoutResponse, error) {
	ctx, span := tracer.Start(ctx, "billing.checkout_pack")
	defer span.End()
	span.SetAttributes(
		attribute.String("nnia.client_id", clientID),
		attribute.String("nnia.pack_id", packID),
	)

	pack, ok := PackByID(packID)
	if !ok {
		return nil, fmt.Errorf("billing: unknown token pack %q", packID)
	}

	return s.stripe.CreateCheckoutSession(ctx, CheckoutParams{
		ClientID: clientID,
		Mode:     "payment",
		PriceID:  pack.StripePriceID,
	})
}

// ChangePlan swaps the client's Stripe subscription to a different paid plan
// and updates the local record.
func (s *Service) ChangePlan(ctx context.Context, clientID, planID string) (*Subscription, error) {
	ctx, span := tracer.Start(ctx, "billing.change_plan")
	defer span.End()

	plan, ok := PlanByID(planID)
	if !ok {
		return nil, fmt.Errorf("billing: unknown plan %q", planID)
	}

	sub, err := s.store.GetByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if sub.StripeSubscriptionID != "" && plan.StripePriceID != "" {
		if err := s.stripe.UpdateSubscription(ctx, sub.StripeSubscriptionID, plan.StripePriceID); err != nil {
			return nil, err
		}
	}
	return s.store.SetPlan(ctx, clientID, plan.ID, sub.StripeSubscriptionID)
}

// Cancel flags both the Stripe subscription and the local record for
// cancellation at period end.
func (s *Service) Cancel(ctx context.Context, clientID string) error {
	ctx, span := tracer.Start(ctx, "billing.cancel")
	defer span.End()

	sub, err := s.store.GetByClient(ctx, clientID)
	if err != nil {
		return err
	}
	if sub.StripeSubscriptionID != "" {
		if err := s.stripe.CancelSubscription(ctx, sub.StripeSubscriptionID); err != nil {
			return err
		}
	}
	return s.store.CancelSubscription(ctx, clientID)
}

// EstimateTokens converts raw text length to a token spend estimate.
func EstimateTokens(text string) int64 {
	if text == "" {
		return 0
	}
	return int64(math.Ceil(float64(len(text)) * 1.2))
}

// Consume deducts the token estimate for a piece of generated text.
func (s *Service) Consume(ctx context.Context, clientID, text string) (*Subscription, error) {
	tokens := EstimateTokens(text)
	if tokens == 0 {
		return s.store.GetByClient(ctx, clientID)
	}
	return s.store.ConsumeTokens(ctx, clientID, tokens)
}

// Payments returns the client's billing history.
func (s *Service) Payments(ctx context.Context, clientID string) ([]Payment, error) {
	return s.store.ListPayments(ctx, clientID)
}
