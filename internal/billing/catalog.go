package billing

// Plan is a recurring subscription tier.
type Plan struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	PriceUSD      int64    `json:"price_usd"`
	MonthlyTokens int64    `json:"monthly_tokens"`
	StripePriceID string   `json:"stripe_price_id,omitempty"`
	Features      []string `json:"features"`
}

// TokenPack is a one-time token top-up.
type TokenPack struct {
	ID            string `json:"id"`
	Tokens        int64  `json:"tokens"`
	PriceUSD      int64  `json:"price_usd"`
	StripePriceID string `json:"stripe_price_id"`
}

var plans = []Plan{
	{
		ID:            "free",
		Name:          "Free",
		PriceUSD:      0,
		MonthlyTokens: 10000,
		Features:      []string{"10K tokens/mes", "Soporte básico", "Widget básico"},
	},
	{
		ID:            "starter",
		Name:          "Starter",
		PriceUSD:      19,
		MonthlyTokens: 150000,
		StripePriceID: "price_1RdfNTP1x2coidHcaMps3STo",
		Features:      []string{"150K tokens/mes", "Soporte por email", "Widget personalizable"},
	},
	{
		ID:            "pro",
		Name:          "Pro",
		PriceUSD:      49,
		MonthlyTokens: 500000,
		StripePriceID: "price_1RdfO7P1x2coidHcPT71SJlt",
		Features:      []string{"500K tokens/mes", "Soporte prioritario", "Analytics avanzados", "Integraciones"},
	},
	{
		ID:            "ultra",
		Name:          "Ultra",
		PriceUSD:      99,
		MonthlyTokens: 1200000,
		StripePriceID: "price_1RdfOfP1x2coidHcln5m4KEi",
		Features:      []string{"1.2M tokens/mes", "Soporte 24/7", "API personalizada", "Onboarding dedicado"},
	},
}

var tokenPacks = []TokenPack{
	{ID: "pack1", Tokens: 150000, PriceUSD: 5, StripePriceID: "price_1RdfS0P1x2coidHcafwMvRba"},
	{ID: "pack2", Tokens: 400000, PriceUSD: 10, StripePriceID: "price_1RdfT4P1x2coidHcbpqY6Wjh"},
}

// Plans returns the subscription catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// TokenPacks returns the one-time pack catalog.
func TokenPacks() []TokenPack {
	out := make([]TokenPack, len(tokenPacks))
	copy(out, tokenPacks)
	return out
}

// PlanByID looks up a plan by its catalog id.
func PlanByID(id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// PackByID looks up a token pack by its catalog id.
func PackByID(id string) (TokenPack, bool) {
	for _, p := range tokenPacks {
		if p.ID == id {
			return p, true
		}
	}
	return TokenPack{}, false
}
