package model

// RawListing is one offer as scraped, before any parsing.
type RawListing struct {
	PriceText         string
	ShippingText      string
	ShippingPriceText string
	ConditionText     string
	// Promo marks a grid slot that is a placeholder advertisement, not an offer.
	Promo bool
}

// RawListingContent is everything the page supplier scraped for one url.
type RawListingContent struct {
	Spotlight   *RawListing
	Grid        []RawListing
	ImageSrc    string
	ImageSrcset string
}

// Empty reports whether the content holds no offers at all.
func (c *RawListingContent) Empty() bool {
	return c == nil || (c.Spotlight == nil && len(c.Grid) == 0)
}
