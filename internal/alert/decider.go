// Package alert decides whether a canonical price triggers a price alert and
// who receives it.
package alert

import (
	"github.com/samber/lo"

	"sjsage522/pricewatcher/internal/model"
)

// Decision is the outcome of evaluating one item.
type Decision struct {
	ShouldAlert bool
	Recipients  []string
	Payload     model.AlertPayload
}

// ShouldAlert reports whether canonical is below the item's threshold for
// exactly the item's effective condition.
func ShouldAlert(item model.MonitoredItem, canonical model.CanonicalPrice) bool {
	return canonical.TotalPrice.LessThan(item.Threshold) &&
		canonical.Condition == item.EffectiveCondition()
}

// Decide evaluates item against canonical. owners holds the owner of every
// item sharing the url; all of them are notified once any qualifying item
// triggers. There is no cooldown: a price that stays below the threshold
// alerts again on every cycle.
func Decide(item model.MonitoredItem, canonical model.CanonicalPrice, owners []string) Decision {
	if !ShouldAlert(item, canonical) {
		return Decision{}
	}

	recipients := lo.Uniq(lo.Filter(owners, func(id string, _ int) bool { return id != "" }))

	return Decision{
		ShouldAlert: true,
		Recipients:  recipients,
		Payload: model.AlertPayload{
			ItemName:   item.Name,
			Condition:  canonical.Condition,
			BasePrice:  canonical.BasePrice,
			TotalPrice: canonical.TotalPrice,
			Threshold:  item.Threshold,
			URL:        item.URL.URL,
		},
	}
}
