package store

import (
	"context"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/pkg/errors"
)

func newItem(t *testing.T, s Store, url, owner string) *model.MonitoredItem {
	t.Helper()
	ctx := context.Background()

	rec, err := FindOrCreateURL(ctx, s, url)
	require.NoError(t, err)

	item := &model.MonitoredItem{
		Name:      faker.Word(),
		URLID:     rec.ID,
		Threshold: decimal.NewFromInt(30),
		Condition: model.ConditionNearMint,
		OwnerID:   owner,
		OwnerName: "user-" + owner,
	}
	require.NoError(t, s.CreateMonitoredItem(ctx, item))
	return item
}

func TestMemoryStoreDuplicateURL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.CreateURL(ctx, "https://example.com/product/1")
	require.NoError(t, err)

	_, err = s.CreateURL(ctx, "https://example.com/product/1")
	assert.True(t, errors.IsDuplicate(err))
}

func TestFindOrCreateURLReusesRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := FindOrCreateURL(ctx, s, "https://example.com/product/1")
	require.NoError(t, err)
	second, err := FindOrCreateURL(ctx, s, "https://example.com/product/1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestMemoryStoreItemsDenormalizedInCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a := newItem(t, s, "https://example.com/a", "1")
	b := newItem(t, s, "https://example.com/b", "2")
	c := newItem(t, s, "https://example.com/a", "3")

	items, err := s.ListMonitoredItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "https://example.com/a", items[2].URL.URL)
	assert.Equal(t, items[0].URLID, items[2].URLID, "items on the same url share one record")

	owners, err := s.ListOwnersForURL(ctx, a.URLID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, owners)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetMonitoredItem(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))

	assert.True(t, errors.IsNotFound(s.DeleteMonitoredItem(ctx, "missing")))

	_, err = s.GetURLByString(ctx, "https://example.com/none")
	assert.True(t, errors.IsNotFound(err))

	err = s.CreateMonitoredItem(ctx, &model.MonitoredItem{URLID: "missing"})
	assert.True(t, errors.IsNotFound(err))
}

func TestMemoryStoreHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	item := newItem(t, s, "https://example.com/a", "1")

	latest, err := s.GetLatestPrice(ctx, item.URLID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = s.AppendPriceHistory(ctx, item.URLID, decimal.NewFromInt(35))
	require.NoError(t, err)
	_, err = s.AppendPriceHistory(ctx, item.URLID, decimal.NewFromInt(28))
	require.NoError(t, err)

	latest, err = s.GetLatestPrice(ctx, item.URLID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, decimal.NewFromInt(28).Equal(latest.Price))

	history, err := s.ListPriceHistory(ctx, item.URLID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, decimal.NewFromInt(35).Equal(history[0].Price))
	assert.False(t, history[1].Timestamp.Before(history[0].Timestamp))
}

func TestMemoryStoreImageFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	item := newItem(t, s, "https://example.com/a", "1")

	require.NoError(t, s.SetURLImageIfAbsent(ctx, item.URLID, "https://img.example/first.jpg"))
	require.NoError(t, s.SetURLImageIfAbsent(ctx, item.URLID, "https://img.example/second.jpg"))

	rec, err := s.GetURL(ctx, item.URLID)
	require.NoError(t, err)
	require.NotNil(t, rec.ImageURL)
	assert.Equal(t, "https://img.example/first.jpg", *rec.ImageURL)

	rec, err = s.SetURLImage(ctx, item.URLID, "https://img.example/manual.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/manual.jpg", *rec.ImageURL)
}

func TestMemoryStoreSummary(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	first := newItem(t, s, "https://example.com/a", "1")
	newItem(t, s, "https://example.com/a", "2")
	dup := &model.MonitoredItem{Name: "again", URLID: first.URLID, OwnerID: "1", OwnerName: "user-1", Condition: model.ConditionUnopened}
	require.NoError(t, s.CreateMonitoredItem(ctx, dup))

	summary, err := s.GetURLSummary(ctx, first.URLID)
	require.NoError(t, err)
	assert.Nil(t, summary.LatestPrice)
	require.NotNil(t, summary.MonitoredItemName)
	assert.Equal(t, first.Name, *summary.MonitoredItemName)
	assert.Equal(t, []string{"user-1", "user-2"}, summary.OwnerNames)

	_, err = s.AppendPriceHistory(ctx, first.URLID, decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	_, err = s.SetHasPriceChanged(ctx, first.URLID, true)
	require.NoError(t, err)

	summaries, err := s.ListURLSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].HasPriceChanged)
	require.NotNil(t, summaries[0].LatestPrice)
	assert.Equal(t, "12.5", summaries[0].LatestPrice.String())
}
