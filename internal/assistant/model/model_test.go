package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestParseIntent(t *testing.T) {
	assert.Equal(t, IntentProductAction, ParseIntent(" product_action\n"))
	assert.Equal(t, IntentCart, ParseIntent(`"cart"`))
	assert.Equal(t, IntentOrderCompletion, ParseIntent("ORDER_COMPLETION"))
	assert.Equal(t, IntentGeneral, ParseIntent("dance"))
	assert.Equal(t, IntentGeneral, ParseIntent(""))
}

func TestProductMatchSize(t *testing.T) {
	p := Product{ID: "g4", Sizes: []string{"S", "M", "L", "XL"}}
	got, ok := p.MatchSize("xl")
	assert.True(t, ok)
	assert.Equal(t, "XL", got)

	_, ok = p.MatchSize("extra large")
	assert.False(t, ok)
	_, ok = Product{}.MatchSize("m")
	assert.False(t, ok)
}

func TestIsPaymentRoute(t *testing.T) {
	assert.True(t, IsPaymentRoute("/payment"))
	assert.True(t, IsPaymentRoute("/payment/?step=1"))
	assert.False(t, IsPaymentRoute("/products"))
	assert.Equal(t, "/products?category=Gym", CategoryRoute("Gym"))
	assert.Equal(t, "/product/g1", ProductRoute("g1"))
}

func TestUserInfoApply(t *testing.T) {
	u := UserInfo{Name: "Ann", Email: "ann@example.com"}
	u.Apply(map[string]string{KeyName: "Bob", KeyEmail: "", KeyCVV: "123", "bogus": "x"})
	assert.Equal(t, "Bob", u.Name)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, "123", u.CVV)
	assert.Equal(t, "Bob", UserInfoFromMap(map[string]string{KeyName: "Bob"}).Name)
}

func TestComputeCost(t *testing.T) {
	c := ComputeCost(&schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}, ResolvePricing("gemini-2.5-flash"))
	assert.InDelta(t, 0.30, c.InputUSD, 1e-9)
	assert.InDelta(t, 1.25, c.OutputUSD, 1e-9)
	assert.InDelta(t, 1.55, c.TotalUSD, 1e-9)

	assert.Equal(t, UsageCost{}, ComputeCost(nil, Pricing{}))
	assert.Equal(t, Pricing{}, ResolvePricing("unknown"))
}

func TestFieldExtractionOK(t *testing.T) {
	assert.True(t, FieldExtraction{Value: "Ann"}.OK())
	assert.False(t, FieldExtraction{Value: "  "}.OK())
}
