package alert

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"sjsage522/pricewatcher/internal/model"
)

func item(threshold int64, condition model.Condition, foil bool) model.MonitoredItem {
	return model.MonitoredItem{
		Name:      "Charizard ex",
		Threshold: decimal.NewFromInt(threshold),
		Condition: condition,
		IsFoil:    foil,
		OwnerID:   "100",
		URL:       model.URLRecord{URL: "https://example.com/product/1"},
	}
}

func canonical(total int64, condition string) model.CanonicalPrice {
	return model.CanonicalPrice{
		BasePrice:  decimal.NewFromInt(total - 1),
		TotalPrice: decimal.NewFromInt(total),
		Condition:  condition,
	}
}

func TestShouldAlertOnMatchingConditionBelowThreshold(t *testing.T) {
	decision := Decide(item(25, model.ConditionNearMint, false), canonical(20, "NearMint"), []string{"100"})

	assert.True(t, decision.ShouldAlert)
	assert.Equal(t, []string{"100"}, decision.Recipients)
	assert.Equal(t, "Charizard ex", decision.Payload.ItemName)
	assert.Equal(t, "NearMint", decision.Payload.Condition)
	assert.True(t, decimal.NewFromInt(20).Equal(decision.Payload.TotalPrice))
	assert.True(t, decimal.NewFromInt(19).Equal(decision.Payload.BasePrice))
	assert.True(t, decimal.NewFromInt(25).Equal(decision.Payload.Threshold))
	assert.Equal(t, "https://example.com/product/1", decision.Payload.URL)
}

func TestNoAlertOnConditionMismatch(t *testing.T) {
	decision := Decide(item(25, model.ConditionNearMint, false), canonical(20, "LightlyPlayed"), []string{"100"})
	assert.False(t, decision.ShouldAlert)
	assert.Empty(t, decision.Recipients)

	// foil items only match the foil listing
	decision = Decide(item(25, model.ConditionNearMint, true), canonical(20, "NearMint"), []string{"100"})
	assert.False(t, decision.ShouldAlert)
}

func TestNoAlertAtOrAboveThreshold(t *testing.T) {
	assert.False(t, Decide(item(25, model.ConditionNearMint, false), canonical(25, "NearMint"), []string{"100"}).ShouldAlert)
	assert.False(t, Decide(item(25, model.ConditionNearMint, false), canonical(30, "NearMint"), []string{"100"}).ShouldAlert)
}

func TestRecipientsAggregatedAcrossURL(t *testing.T) {
	owners := []string{"100", "200", "100", ""}
	decision := Decide(item(30, model.ConditionUnopened, true), canonical(28, "UnopenedFoil"), owners)

	assert.True(t, decision.ShouldAlert)
	assert.ElementsMatch(t, []string{"100", "200"}, decision.Recipients)
}
