// Package store defines the persistence interface for monitored items, their
// urls and the append-only price history. Implementations include PostgreSQL
// (source of truth) and in-memory (for testing and local runs).
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/pkg/errors"
)

const component = "store"

// Store is the catalog repository shared by the poll worker and the management API.
type Store interface {
	// --- Monitored items ---

	// ListMonitoredItems returns every item, denormalized with its url, in creation order.
	ListMonitoredItems(ctx context.Context) ([]model.MonitoredItem, error)

	// GetMonitoredItem retrieves an item by its ID.
	GetMonitoredItem(ctx context.Context, id string) (*model.MonitoredItem, error)

	// CreateMonitoredItem persists a new item. URLID must reference an existing url.
	CreateMonitoredItem(ctx context.Context, item *model.MonitoredItem) error

	// UpdateMonitoredItem overwrites the mutable fields of an item.
	UpdateMonitoredItem(ctx context.Context, item *model.MonitoredItem) error

	// DeleteMonitoredItem removes an item.
	DeleteMonitoredItem(ctx context.Context, id string) error

	// ListOwnersForURL returns the owner of every item on the url, one per item.
	ListOwnersForURL(ctx context.Context, urlID string) ([]string, error)

	// --- Urls ---

	// CreateURL persists a new url. A url that already exists fails with a duplicate error.
	CreateURL(ctx context.Context, url string) (*model.URLRecord, error)

	GetURL(ctx context.Context, id string) (*model.URLRecord, error)
	GetURLByString(ctx context.Context, url string) (*model.URLRecord, error)

	// ListURLSummaries returns the dashboard view of every url.
	ListURLSummaries(ctx context.Context) ([]model.URLSummary, error)
	GetURLSummary(ctx context.Context, id string) (*model.URLSummary, error)

	// SetURLImage overwrites the image of a url.
	SetURLImage(ctx context.Context, id, imageURL string) (*model.URLRecord, error)

	// SetURLImageIfAbsent stores the image only when the url has none yet.
	SetURLImageIfAbsent(ctx context.Context, id, imageURL string) error

	SetHasPriceChanged(ctx context.Context, id string, changed bool) (*model.URLRecord, error)

	// --- Price history ---

	// GetLatestPrice returns the most recent history entry, or nil when there is none.
	GetLatestPrice(ctx context.Context, urlID string) (*model.PriceHistoryEntry, error)

	// AppendPriceHistory records a new price observation at the current time.
	AppendPriceHistory(ctx context.Context, urlID string, price decimal.Decimal) (*model.PriceHistoryEntry, error)

	// ListPriceHistory returns a url's history ordered by ascending timestamp.
	ListPriceHistory(ctx context.Context, urlID string) ([]model.PriceHistoryEntry, error)
}

// FindOrCreateURL returns the url record for url, creating it when missing.
func FindOrCreateURL(ctx context.Context, s Store, url string) (*model.URLRecord, error) {
	rec, err := s.GetURLByString(ctx, url)
	if err == nil {
		return rec, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	rec, err = s.CreateURL(ctx, url)
	if errors.IsDuplicate(err) {
		// lost a race with a concurrent writer
		return s.GetURLByString(ctx, url)
	}
	return rec, err
}

func errItemNotFound(id string) error {
	return errors.NewNotFound(component, "monitored item "+id+" not found")
}

func errURLNotFound(key string) error {
	return errors.NewNotFound(component, "url "+key+" not found")
}

func errDuplicateURL(url string) error {
	return errors.NewDuplicate(component, "url "+url+" is already monitored")
}
