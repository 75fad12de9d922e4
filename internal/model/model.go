// Package model defines the domain types shared by the price watcher components.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Condition is the configured condition of a monitored item.
type Condition string

const (
	ConditionUnopened         Condition = "Unopened"
	ConditionNearMint         Condition = "NearMint"
	ConditionLightlyPlayed    Condition = "LightlyPlayed"
	ConditionModeratelyPlayed Condition = "ModeratelyPlayed"
	ConditionHeavilyPlayed    Condition = "HeavilyPlayed"
)

// FoilSuffix is appended to a condition when the item is a foil printing.
const FoilSuffix = "Foil"

// Conditions lists every accepted condition in display order.
var Conditions = []Condition{
	ConditionUnopened,
	ConditionNearMint,
	ConditionLightlyPlayed,
	ConditionModeratelyPlayed,
	ConditionHeavilyPlayed,
}

// Valid reports whether c is one of the enumerated conditions.
func (c Condition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

// Origin tells where on the page a listing entry was found.
type Origin string

const (
	OriginSpotlight Origin = "spotlight"
	OriginGrid      Origin = "grid"
)

// ListingEntry is one normalized offer parsed from a listing page.
type ListingEntry struct {
	BasePrice    decimal.Decimal
	ShippingCost decimal.Decimal
	TotalPrice   decimal.Decimal
	Condition    string
	Origin       Origin
}

// CanonicalPrice is the single selected price for an item in one cycle.
type CanonicalPrice struct {
	BasePrice    decimal.Decimal
	TotalPrice   decimal.Decimal
	ShippingCost decimal.Decimal
	Condition    string
	ImageURL     string
}

// URLRecord is a tracked marketplace url shared by every item that watches it.
type URLRecord struct {
	ID              string  `json:"id"`
	URL             string  `json:"url"`
	ImageURL        *string `json:"imageUrl"`
	HasPriceChanged bool    `json:"hasPriceChanged"`
}

// MonitoredItem is a user's watch on a url for one condition and threshold.
type MonitoredItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	URLID          string          `json:"urlId"`
	Threshold      decimal.Decimal `json:"threshold"`
	Condition      Condition       `json:"condition"`
	IsFoil         bool            `json:"isFoil"`
	SellerVerified bool            `json:"sellerVerified"`
	OwnerID        string          `json:"ownerId"`
	OwnerName      string          `json:"ownerName,omitempty"`
	URL            URLRecord       `json:"url"`
}

// EffectiveCondition is the condition string compared against scraped listings.
func (i MonitoredItem) EffectiveCondition() string {
	if i.IsFoil {
		return string(i.Condition) + FoilSuffix
	}
	return string(i.Condition)
}

// PriceHistoryEntry is an append-only price observation for a url.
type PriceHistoryEntry struct {
	ID        string          `json:"id"`
	URLID     string          `json:"urlId"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// URLSummary is the denormalized url view served to dashboards and pushed on changes.
type URLSummary struct {
	ID                string           `json:"id"`
	URL               string           `json:"url"`
	ImageURL          *string          `json:"imageUrl"`
	HasPriceChanged   bool             `json:"hasPriceChanged"`
	MonitoredItemName *string          `json:"monitoredItemName"`
	LatestPrice       *decimal.Decimal `json:"latestPrice"`
	OwnerNames        []string         `json:"discordUserNames"`
}

// AlertPayload carries the fields rendered into a price alert.
type AlertPayload struct {
	ItemName   string
	Condition  string
	BasePrice  decimal.Decimal
	TotalPrice decimal.Decimal
	Threshold  decimal.Decimal
	URL        string
}
