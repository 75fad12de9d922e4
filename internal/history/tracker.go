// Package history decides when a canonical price is recorded in a url's
// append-only price history.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/services/publisher"
)

var hundred = decimal.NewFromInt(100)

// Repository is the part of the catalog store the tracker writes to.
type Repository interface {
	GetLatestPrice(ctx context.Context, urlID string) (*model.PriceHistoryEntry, error)
	AppendPriceHistory(ctx context.Context, urlID string, price decimal.Decimal) (*model.PriceHistoryEntry, error)
	SetHasPriceChanged(ctx context.Context, id string, changed bool) (*model.URLRecord, error)
	SetURLImageIfAbsent(ctx context.Context, id, imageURL string) error
	GetURLSummary(ctx context.Context, id string) (*model.URLSummary, error)
}

// Outcome reports what Record did.
type Outcome struct {
	Changed bool
	Entry   *model.PriceHistoryEntry
}

// Tracker appends a price to history whenever it differs from the latest one.
type Tracker struct {
	repo      Repository
	publisher publisher.Publisher
	logger    *logger.Logger
}

// NewTracker creates a tracker. pub may be nil when no live updates are wanted.
func NewTracker(repo Repository, pub publisher.Publisher) *Tracker {
	return &Tracker{
		repo:      repo,
		publisher: pub,
		logger:    logger.ForWorker().WithField("stage", "history"),
	}
}

// Cents converts a price to integer minor units, rounding half away from zero.
func Cents(price decimal.Decimal) int64 {
	return price.Mul(hundred).Round(0).IntPart()
}

// Changed reports whether current must be recorded after last.
func Changed(last *decimal.Decimal, current decimal.Decimal) bool {
	return last == nil || Cents(*last) != Cents(current)
}

// Record stores the url's first image if it has none, then appends
// canonical.TotalPrice when it differs from the latest recorded price. An
// append flags the url as changed and publishes a live update. The flag is
// never cleared here.
func (t *Tracker) Record(ctx context.Context, urlID string, canonical model.CanonicalPrice) (Outcome, error) {
	if canonical.ImageURL != "" {
		if err := t.repo.SetURLImageIfAbsent(ctx, urlID, canonical.ImageURL); err != nil {
			t.logger.Warn().Err(err).Str("url_id", urlID).Msg("Failed to store image")
		}
	}

	latest, err := t.repo.GetLatestPrice(ctx, urlID)
	if err != nil {
		return Outcome{}, fmt.Errorf("read latest price: %w", err)
	}

	var last *decimal.Decimal
	if latest != nil {
		last = &latest.Price
	}
	if !Changed(last, canonical.TotalPrice) {
		return Outcome{}, nil
	}

	entry, err := t.repo.AppendPriceHistory(ctx, urlID, canonical.TotalPrice)
	if err != nil {
		return Outcome{}, fmt.Errorf("append price history: %w", err)
	}
	if _, err := t.repo.SetHasPriceChanged(ctx, urlID, true); err != nil {
		return Outcome{Changed: true, Entry: entry}, fmt.Errorf("flag price change: %w", err)
	}

	t.logger.Info().
		Str("url_id", urlID).
		Str("price", canonical.TotalPrice.StringFixed(2)).
		Msg("Price change recorded")

	t.publish(ctx, urlID)
	return Outcome{Changed: true, Entry: entry}, nil
}

// publish is best-effort: failures are logged, never returned.
func (t *Tracker) publish(ctx context.Context, urlID string) {
	if t.publisher == nil {
		return
	}

	summary, err := t.repo.GetURLSummary(ctx, urlID)
	if err != nil {
		t.logger.Warn().Err(err).Str("url_id", urlID).Msg("Failed to load url summary for live update")
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Failed to encode live update")
		return
	}

	if err := t.publisher.Publish(publisher.PriceUpdateEvent, data); err != nil {
		t.logger.Warn().Err(err).Str("url_id", urlID).Msg("Failed to publish live update")
	}
}
