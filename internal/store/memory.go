package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"sjsage522/pricewatcher/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	items   []model.MonitoredItem
	urls    map[string]*model.URLRecord
	urlIDs  []string
	history map[string][]model.PriceHistoryEntry

	now func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		urls:    make(map[string]*model.URLRecord),
		history: make(map[string][]model.PriceHistoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) ListMonitoredItems(_ context.Context) ([]model.MonitoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.MonitoredItem, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, s.denormalize(it))
	}
	return items, nil
}

func (s *MemoryStore) GetMonitoredItem(_ context.Context, id string) (*model.MonitoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.itemIndex(id)
	if idx < 0 {
		return nil, errItemNotFound(id)
	}
	item := s.denormalize(s.items[idx])
	return &item, nil
}

func (s *MemoryStore) CreateMonitoredItem(_ context.Context, item *model.MonitoredItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.urls[item.URLID]; !ok {
		return errURLNotFound(item.URLID)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.items = append(s.items, *item)
	*item = s.denormalize(*item)
	return nil
}

func (s *MemoryStore) UpdateMonitoredItem(_ context.Context, item *model.MonitoredItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.itemIndex(item.ID)
	if idx < 0 {
		return errItemNotFound(item.ID)
	}
	if _, ok := s.urls[item.URLID]; !ok {
		return errURLNotFound(item.URLID)
	}
	s.items[idx] = *item
	*item = s.denormalize(*item)
	return nil
}

func (s *MemoryStore) DeleteMonitoredItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.itemIndex(id)
	if idx < 0 {
		return errItemNotFound(id)
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

func (s *MemoryStore) ListOwnersForURL(_ context.Context, urlID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owners []string
	for _, it := range s.items {
		if it.URLID == urlID {
			owners = append(owners, it.OwnerID)
		}
	}
	return owners, nil
}

func (s *MemoryStore) CreateURL(_ context.Context, url string) (*model.URLRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.urls {
		if rec.URL == url {
			return nil, errDuplicateURL(url)
		}
	}

	rec := &model.URLRecord{ID: uuid.NewString(), URL: url}
	s.urls[rec.ID] = rec
	s.urlIDs = append(s.urlIDs, rec.ID)
	copy := *rec
	return &copy, nil
}

func (s *MemoryStore) GetURL(_ context.Context, id string) (*model.URLRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.urls[id]
	if !ok {
		return nil, errURLNotFound(id)
	}
	copy := *rec
	return &copy, nil
}

func (s *MemoryStore) GetURLByString(_ context.Context, url string) (*model.URLRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.urls {
		if rec.URL == url {
			copy := *rec
			return &copy, nil
		}
	}
	return nil, errURLNotFound(url)
}

func (s *MemoryStore) ListURLSummaries(_ context.Context) ([]model.URLSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]model.URLSummary, 0, len(s.urlIDs))
	for _, id := range s.urlIDs {
		summaries = append(summaries, s.summary(s.urls[id]))
	}
	return summaries, nil
}

func (s *MemoryStore) GetURLSummary(_ context.Context, id string) (*model.URLSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.urls[id]
	if !ok {
		return nil, errURLNotFound(id)
	}
	summary := s.summary(rec)
	return &summary, nil
}

func (s *MemoryStore) SetURLImage(_ context.Context, id, imageURL string) (*model.URLRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.urls[id]
	if !ok {
		return nil, errURLNotFound(id)
	}
	rec.ImageURL = lo.ToPtr(imageURL)
	copy := *rec
	return &copy, nil
}

func (s *MemoryStore) SetURLImageIfAbsent(_ context.Context, id, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.urls[id]
	if !ok {
		return errURLNotFound(id)
	}
	if rec.ImageURL == nil {
		rec.ImageURL = lo.ToPtr(imageURL)
	}
	return nil
}

func (s *MemoryStore) SetHasPriceChanged(_ context.Context, id string, changed bool) (*model.URLRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.urls[id]
	if !ok {
		return nil, errURLNotFound(id)
	}
	rec.HasPriceChanged = changed
	copy := *rec
	return &copy, nil
}

func (s *MemoryStore) GetLatestPrice(_ context.Context, urlID string) (*model.PriceHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[urlID]
	if len(entries) == 0 {
		return nil, nil
	}
	latest := entries[len(entries)-1]
	return &latest, nil
}

func (s *MemoryStore) AppendPriceHistory(_ context.Context, urlID string, price decimal.Decimal) (*model.PriceHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.urls[urlID]; !ok {
		return nil, errURLNotFound(urlID)
	}

	entry := model.PriceHistoryEntry{
		ID:        uuid.NewString(),
		URLID:     urlID,
		Price:     price,
		Timestamp: s.now(),
	}
	s.history[urlID] = append(s.history[urlID], entry)
	return &entry, nil
}

func (s *MemoryStore) ListPriceHistory(_ context.Context, urlID string) ([]model.PriceHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.PriceHistoryEntry, len(s.history[urlID]))
	copy(entries, s.history[urlID])
	return entries, nil
}

func (s *MemoryStore) itemIndex(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// denormalize attaches the current url record. Callers hold the lock.
func (s *MemoryStore) denormalize(item model.MonitoredItem) model.MonitoredItem {
	if rec, ok := s.urls[item.URLID]; ok {
		item.URL = *rec
	}
	return item
}

// summary builds the dashboard view of rec. Callers hold the lock.
func (s *MemoryStore) summary(rec *model.URLRecord) model.URLSummary {
	summary := model.URLSummary{
		ID:              rec.ID,
		URL:             rec.URL,
		ImageURL:        rec.ImageURL,
		HasPriceChanged: rec.HasPriceChanged,
		OwnerNames:      []string{},
	}

	for _, it := range s.items {
		if it.URLID != rec.ID {
			continue
		}
		if summary.MonitoredItemName == nil {
			summary.MonitoredItemName = lo.ToPtr(it.Name)
		}
		if it.OwnerName != "" && !lo.Contains(summary.OwnerNames, it.OwnerName) {
			summary.OwnerNames = append(summary.OwnerNames, it.OwnerName)
		}
	}

	if entries := s.history[rec.ID]; len(entries) > 0 {
		summary.LatestPrice = lo.ToPtr(entries[len(entries)-1].Price)
	}
	return summary
}
