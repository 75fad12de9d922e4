package crawler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"sjsage522/pricewatcher/internal/model"
)

// Sort is the listing order requested from the marketplace.
type Sort string

const (
	// SortPriceShipping orders offers by price plus shipping, cheapest first.
	SortPriceShipping Sort = "price+shipping"
	// SortPrice orders offers by base price only.
	SortPrice Sort = "price"
)

// pageSize is the number of grid offers requested per page.
const pageSize = 25

const verifiedSellerCriteria = "M=1&WantVerifiedSellers=True&WantDirect=False&WantSellersInCart=False&WantWPNSellers=False"

// Supplier produces the raw listing content of one marketplace url.
type Supplier interface {
	// FetchListingContent loads url and scrapes its offers. Partial or empty
	// content is returned as is; the caller treats it as no listings.
	FetchListingContent(ctx context.Context, url string, sellerVerified bool, sort Sort) (*model.RawListingContent, error)

	// GetName returns the supplier's name for logging and identification
	GetName() string
}

// Cookies returns the marketplace display cookies for a request. The verified
// seller search criteria are only sent when sellerVerified is set.
func Cookies(rawURL string, sellerVerified bool, sort Sort) []*http.Cookie {
	if sort == "" {
		sort = SortPriceShipping
	}

	domain := ""
	if u, err := url.Parse(rawURL); err == nil {
		domain = u.Hostname()
	}

	cookies := []*http.Cookie{{
		Name:   "product-display-settings",
		Value:  "sort=" + string(sort) + "&size=" + strconv.Itoa(pageSize),
		Domain: domain,
		Path:   "/",
	}}
	if sellerVerified {
		cookies = append(cookies, &http.Cookie{
			Name:   "SearchCriteria",
			Value:  verifiedSellerCriteria,
			Domain: domain,
			Path:   "/",
		})
	}
	return cookies
}
