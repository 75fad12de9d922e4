package crawler

import (
	"context"
	"io"
	"strconv"
	"time"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/pkg/errors"
	"sjsage522/pricewatcher/services/cache"
)

// fetchFunc loads the HTML of a product page.
type fetchFunc func(ctx context.Context, url string, sellerVerified bool, sort Sort) (io.Reader, error)

// BaseSupplier provides the rate limit block and page parsing shared by all suppliers
type BaseSupplier struct {
	Name      string
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration

	fetch  fetchFunc
	logger *logger.Logger
}

// FetchListingContent fetches and parses a product page unless the supplier is
// blocked after a rate limit.
func (b *BaseSupplier) FetchListingContent(ctx context.Context, url string, sellerVerified bool, sort Sort) (*model.RawListingContent, error) {
	if b.blocked() {
		return nil, errors.NewRateLimit(b.Name, b.BlockTime)
	}

	body, err := b.fetch(ctx, url, sellerVerified, sort)
	if err != nil {
		if errors.TypeOf(err) == errors.ErrorTypeRateLimit {
			b.block()
		}
		return nil, err
	}

	content, err := ParseListingPage(body)
	if err != nil {
		return nil, err
	}

	b.logger.Debug().
		Str("url", url).
		Bool("spotlight", content.Spotlight != nil).
		Int("grid", len(content.Grid)).
		Msg("Scraped listing page")
	return content, nil
}

// GetName returns the supplier's name
func (b *BaseSupplier) GetName() string {
	return b.Name
}

func (b *BaseSupplier) blocked() bool {
	if b.CacheSvc == nil || b.CacheKey == "" {
		return false
	}
	_, err := b.CacheSvc.Get(b.CacheKey)
	return err == nil
}

func (b *BaseSupplier) block() {
	if b.CacheSvc == nil || b.CacheKey == "" {
		return
	}
	value := []byte(strconv.Itoa(int(b.BlockTime / time.Second)))
	if err := b.CacheSvc.Set(b.CacheKey, value, b.BlockTime); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to set rate limit block")
		return
	}
	b.logger.Warn().Dur("block", b.BlockTime).Msg("Rate limited, pausing requests")
}
