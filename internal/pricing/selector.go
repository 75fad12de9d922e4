// Package pricing selects the canonical price of an item from its listings.
package pricing

import (
	"sjsage522/pricewatcher/internal/model"
)

// Select returns the cheapest entry matching target by total price. When no
// entry matches, the cheapest entry of any condition is used instead. Ties
// keep the earliest entry, so the spotlight wins over the grid. Returns nil
// when there are no entries.
func Select(entries []model.ListingEntry, target string) *model.CanonicalPrice {
	if len(entries) == 0 {
		return nil
	}

	best := cheapest(entries, func(e model.ListingEntry) bool { return e.Condition == target })
	if best == nil {
		best = cheapest(entries, func(model.ListingEntry) bool { return true })
	}

	return &model.CanonicalPrice{
		BasePrice:    best.BasePrice,
		TotalPrice:   best.TotalPrice,
		ShippingCost: best.ShippingCost,
		Condition:    best.Condition,
	}
}

func cheapest(entries []model.ListingEntry, keep func(model.ListingEntry) bool) *model.ListingEntry {
	var best *model.ListingEntry
	for i := range entries {
		if !keep(entries[i]) {
			continue
		}
		if best == nil || entries[i].TotalPrice.LessThan(best.TotalPrice) {
			best = &entries[i]
		}
	}
	return best
}
