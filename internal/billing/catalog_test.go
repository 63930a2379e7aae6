package billing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanByID(t *testing.T) {
	plan, ok := PlanByID("pro")
	require.True(t, ok)
	assert.Equal(t, int64(49), plan.PriceUSD)
	assert.Equal(t, int64(500000), plan.MonthlyTokens)
	assert.NotEmpty(t, plan.StripePriceID)

	_, ok = PlanByID("enterprise")
	assert.False(t, ok)
}

func TestFreePlanHasNoStripePrice(t *testing.T) {
	plan, ok := PlanByID("free")
	require.True(t, ok)
	assert.Zero(t, plan.PriceUSD)
	assert.Equal(t, int64(10000), plan.MonthlyTokens)
	assert.Empty(t, plan.StripePriceID)
}

func TestPackByID(t *testing.T) {
	pack, ok := PackByID("pack2")
	require.True(t, ok)
	assert.Equal(t, int64(400000), pack.Tokens)
	assert.Equal(t, int64(10), pack.PriceUSD)
	assert.NotEmpty(t, pack.StripePriceID)
}

func TestEveryPlanCarriesFeatureList(t *testing.T) {
	for _, plan := range Plans() {
		require.NotEmpty(t, plan.Features, "plan %s has no features", plan.ID)

		raw, err := json.Marshal(plan)
		require.NoError(t, err)
		var decoded map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Contains(t, decoded, "features", "plan %s serializes without features", plan.ID)
	}

	ultra, ok := PlanByID("ultra")
	require.True(t, ok)
	assert.Equal(t,
		[]string{"1.2M tokens/mes", "Soporte 24/7", "API personalizada", "Onboarding dedicado"},
		ultra.Features,
	)
}

func TestCatalogCopiesAreIsolated(t *testing.T) {
	got := Plans()
	got[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Plans()[0].Name)

	packs := TokenPacks()
	packs[0].Tokens = 1
	assert.NotEqual(t, int64(1), TokenPacks()[0].Tokens)
}
