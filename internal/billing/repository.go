package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInsufficientTokens indicates the client's balance cannot cover a spend.
var ErrInsufficientTokens = errors.New("billing: insufficient tokens")

// Subscription is a client's current plan and token balance.
type Subscription struct {
	ClientID             string    `json:"client_id"`
	PlanID               string    `json:"plan_id"`
	Status               string    `json:"status"`
	TokensRemaining      int64     `json:"tokens_remaining"`
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Payment is a recorded billing event for a client.
type Payment struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	Description string    `json:"description"`
	AmountUSD   int64     `json:"amount_usd"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type billingDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists subscriptions and payments in Postgres.
type Repository struct {
	db billingDB
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("billing: nil pool")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB injects a narrow DB interface, used by tests.
func NewRepositoryWithDB(db billingDB) *Repository {
	return &Repository{db: db}
}

const subscriptionColumns = "client_id, plan_id, status, tokens_remaining, stripe_subscription_id, updated_at"

// GetByClient returns the client's subscription, creating a default Free one
// when no row exists yet.
func (r *Repository) GetByClient(ctx context.Context, clientID string) (*Subscription, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("billing: client id is required")
	}

	var sub Subscription
	err := r.db.QueryRow(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE client_id = $1",
		clientID,
	).Scan(&sub.ClientID, &sub.PlanID, &sub.Status, &sub.TokensRemaining, &sub.StripeSubscriptionID, &sub.UpdatedAt)
	if err == nil {
		return &sub, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("billing: get subscription: %w", err)
	}

	free, _ := PlanByID("free")
	created := Subscription{
		ClientID:        clientID,
		PlanID:          free.ID,
		Status:          "active",
		TokensRemaining: free.MonthlyTokens,
		UpdatedAt:       time.Now().UTC(),
	}
	_, err = r.db.Exec(ctx,
		"INSERT INTO subscriptions (client_id, plan_id, status, tokens_remaining, stripe_subscription_id, updated_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (client_id) DO NOTHING",
		created.ClientID, created.PlanID, created.Status, created.TokensRemaining, created.StripeSubscriptionID, created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("billing: create default subscription: %w", err)
	}

	// Re-read the row: a concurrent writer may have won the insert with a
	// different plan, in which case ours was a no-op.
	err = r.db.QueryRow(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE client_id = $1",
		clientID,
	).Scan(&sub.ClientID, &sub.PlanID, &sub.Status, &sub.TokensRemaining, &sub.StripeSubscriptionID, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("billing: get subscription: %w", err)
	}
	return &sub, nil
}

// SetPlan switches the client's plan and resets the token balance to the
// plan's monthly allowance.
func (r *Repository) SetPlan(ctx context.Context, clientID, planID, stripeSubscriptionID string) (*Subscription, error) {
	plan, ok := PlanByID(planID)
	if !ok {
		return nil, fmt.Errorf("billing: unknown plan %q", planID)
	}

	var sub Subscription
	err := r.db.QueryRow(ctx,
		`INSERT INTO subscriptions (client_id, plan_id, status, tokens_remaining, stripe_subscription_id, updated_at)
		 VALUES ($1, $2, 'active', $3, $4, $5)
		 ON CONFLICT (client_id) DO UPDATE SET plan_id = $2, status = 'active', tokens_remaining = $3, stripe_subscription_id = $4, updated_at = $5
		 RETURNING `+subscriptionColumns,
		clientID, plan.ID, plan.MonthlyTokens, stripeSubscriptionID, time.Now().UTC(),
	).Scan(&sub.ClientID, &sub.PlanID, &sub.Status, &sub.TokensRemaining, &sub.StripeSubscriptionID, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("billing: set plan: %w", err)
	}
	return &sub, nil
}

// AddTokens credits a purchased token pack to the client's balance.
func (r *Repository) AddTokens(ctx context.Context, clientID string, tokens int64) (*Subscription, error) {
	if tokens <= 0 {
		return nil, fmt.Errorf("billing: token credit must be positive")
	}
	if _, err := r.GetByClient(ctx, clientID); err != nil {
		return nil, err
	}

	var sub Subscription
	err := r.db.QueryRow(ctx,
		"UPDATE subscriptions SET tokens_remaining = tokens_remaining + $2, updated_at = $3 WHERE client_id = $1 RETURNING "+subscriptionColumns,
		clientID, tokens, time.Now().UTC(),
	).Scan(&sub.ClientID, &sub.PlanID, &sub.Status, &sub.TokensRemaining, &sub.StripeSubscriptionID, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("billing: add tokens: %w", err)
	}
	return &sub, nil
}

// ConsumeTokens atomically deducts tokens, failing when the balance is short.
func (r *Repository) ConsumeTokens(ctx context.Context, clientID string, tokens int64) (*Subscription, error) {
	if tokens <= 0 {
		return nil, fmt.Errorf("billing: token spend must be positive")
	}
	if _, err := r.GetByClient(ctx, clientID); err != nil {
		return nil, err
	}

	var sub Subscription
	err := r.db.QueryRow(ctx,
		"UPDATE subscriptions SET tokens_remaining = tokens_remaining - $2, updated_at = $3 WHERE client_id = $1 AND tokens_remaining >= $2 RETURNING "+subscriptionColumns,
		clientID, tokens, time.Now().UTC(),
	).Scan(&sub.ClientID, &sub.PlanID, &sub.Status, &sub.TokensRemaining, &sub.StripeSubscriptionID, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInsufficientTokens
	}
	if err != nil {
		return nil, fmt.Errorf("billing: consume tokens: %w", err)
	}
	return &sub, nil
}

// CancelSubscription marks the subscription as cancelling at period end.
func (r *Repository) CancelSubscription(ctx context.Context, clientID string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE subscriptions SET status = 'cancelling', updated_at = $2 WHERE client_id = $1",
		clientID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("billing: cancel subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("billing: subscription for %s not found", clientID)
	}
	return nil
}

// RecordPayment stores a billing event.
func (r *Repository) RecordPayment(ctx context.Context, p Payment) (*Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		"INSERT INTO payments (id, client_id, description, amount_usd, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		p.ID, p.ClientID, p.Description, p.AmountUSD, p.Status, p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("billing: record payment: %w", err)
	}
	return &p, nil
}

// ListPayments returns a client's billing history, newest first.
func (r *Repository) ListPayments(ctx context.Context, clientID string) ([]Payment, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, client_id, description, amount_usd, status, created_at FROM payments WHERE client_id = $1 ORDER BY created_at DESC",
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("billing: list payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Description, &p.AmountUSD, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("billing: scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: rows: %w", err)
	}
	return out, nil
}
