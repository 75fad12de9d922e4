package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveCondition(t *testing.T) {
	item := MonitoredItem{Condition: ConditionUnopened}
	assert.Equal(t, "Unopened", item.EffectiveCondition())

	item.IsFoil = true
	assert.Equal(t, "UnopenedFoil", item.EffectiveCondition())
}

func TestConditionValid(t *testing.T) {
	for _, c := range Conditions {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Condition("Near Mint").Valid())
	assert.False(t, Condition("NearMintFoil").Valid())
	assert.False(t, Condition("").Valid())
}

func TestRawListingContentEmpty(t *testing.T) {
	var nilContent *RawListingContent
	assert.True(t, nilContent.Empty())
	assert.True(t, (&RawListingContent{ImageSrc: "x"}).Empty())
	assert.False(t, (&RawListingContent{Grid: []RawListing{{PriceText: "$1"}}}).Empty())
	assert.False(t, (&RawListingContent{Spotlight: &RawListing{}}).Empty())
}
