package crawler

import (
	"context"
	"io"
	"time"

	"sjsage522/pricewatcher/helpers"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/services/cache"
)

// HTTPSupplier fetches product pages with a plain HTTP request. It only sees
// server-rendered markup, so it suits pages that do not need JavaScript.
type HTTPSupplier struct {
	BaseSupplier
}

// NewHTTPSupplier creates a direct HTTP supplier
func NewHTTPSupplier(cacheSvc cache.CacheService, blockTime time.Duration) *HTTPSupplier {
	s := &HTTPSupplier{
		BaseSupplier: BaseSupplier{
			Name:      "http",
			CacheKey:  "http_supplier_rate_limited",
			CacheSvc:  cacheSvc,
			BlockTime: blockTime,
			logger:    logger.ForSupplier("http"),
		},
	}
	s.fetch = s.fetchPage
	return s
}

func (s *HTTPSupplier) fetchPage(ctx context.Context, url string, sellerVerified bool, sort Sort) (io.Reader, error) {
	return helpers.FetchWithRandomHeaders(ctx, url, Cookies(url, sellerVerified, sort))
}
