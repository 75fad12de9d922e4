// Package listing turns scraped listing page content into normalized offers.
package listing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"sjsage522/pricewatcher/internal/model"
)

// shippingIncluded is the marker the marketplace prints for free shipping.
const shippingIncluded = "Shipping: Included"

var (
	currencyRegex = regexp.MustCompile(`\$([0-9,]+\.?[0-9]*)`)
	widthRegex    = regexp.MustCompile(`^(\d+)w$`)
)

// Result is the outcome of one extraction call.
type Result struct {
	Entries  []model.ListingEntry
	ImageURL string
}

// Extract parses every offer in content. Spotlight comes first, then grid
// entries in page order. Entries whose price does not parse are dropped, as
// are promotional grid placeholders. Nil or empty content yields no entries.
func Extract(content *model.RawListingContent) Result {
	if content == nil {
		return Result{}
	}

	var result Result
	result.ImageURL = SelectImage(content.ImageSrc, content.ImageSrcset)

	if content.Spotlight != nil {
		if entry, ok := toEntry(*content.Spotlight, model.OriginSpotlight); ok {
			result.Entries = append(result.Entries, entry)
		}
	}

	for _, raw := range content.Grid {
		if raw.Promo {
			continue
		}
		if entry, ok := toEntry(raw, model.OriginGrid); ok {
			result.Entries = append(result.Entries, entry)
		}
	}

	return result
}

func toEntry(raw model.RawListing, origin model.Origin) (model.ListingEntry, bool) {
	base, ok := ParseCurrency(raw.PriceText)
	if !ok {
		return model.ListingEntry{}, false
	}
	shipping := ParseShipping(raw.ShippingText, raw.ShippingPriceText)

	return model.ListingEntry{
		BasePrice:    base,
		ShippingCost: shipping,
		TotalPrice:   base.Add(shipping),
		Condition:    NormalizeCondition(raw.ConditionText),
		Origin:       origin,
	}, true
}

// ParseCurrency returns the first "$1,234.56" style amount found in text.
func ParseCurrency(text string) (decimal.Decimal, bool) {
	match := currencyRegex.FindStringSubmatch(text)
	if len(match) < 2 {
		return decimal.Zero, false
	}

	digits := strings.ReplaceAll(match[1], ",", "")
	digits = strings.TrimSuffix(digits, ".")
	if digits == "" {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// ParseShipping returns the shipping cost of an offer. Included shipping and
// a missing price are both free.
func ParseShipping(shippingText, shippingPriceText string) decimal.Decimal {
	if strings.Contains(strings.Join(strings.Fields(shippingText), " "), shippingIncluded) {
		return decimal.Zero
	}
	if cost, ok := ParseCurrency(shippingPriceText); ok {
		return cost
	}
	return decimal.Zero
}

// NormalizeCondition removes every whitespace character, keeping case.
func NormalizeCondition(text string) string {
	return strings.Join(strings.Fields(text), "")
}

// SelectImage picks the widest srcset candidate, falling back to src.
func SelectImage(src, srcset string) string {
	best := ""
	bestWidth := 0

	for _, candidate := range strings.Split(srcset, ",") {
		parts := strings.Fields(candidate)
		if len(parts) < 2 {
			continue
		}
		m := widthRegex.FindStringSubmatch(parts[1])
		if m == nil {
			continue
		}
		width, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if width > bestWidth {
			bestWidth = width
			best = parts[0]
		}
	}

	if best != "" {
		return best
	}
	return strings.TrimSpace(src)
}
