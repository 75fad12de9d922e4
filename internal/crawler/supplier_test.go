package crawler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatcher/pkg/errors"
)

func TestChromeSupplierFetchListingContent(t *testing.T) {
	var received functionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/function", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	supplier := NewChromeSupplier(server.URL, NewMockCacheService(), time.Minute, 5*time.Second)
	content, err := supplier.FetchListingContent(context.Background(), "https://www.tcgplayer.com/product/1", true, SortPriceShipping)
	require.NoError(t, err)

	require.NotNil(t, content.Spotlight)
	assert.Len(t, content.Grid, 3)

	assert.Equal(t, "https://www.tcgplayer.com/product/1", received.Context.URL)
	require.Len(t, received.Context.Cookies, 2)
	assert.Equal(t, "SearchCriteria", received.Context.Cookies[1].Name)
	assert.NotEmpty(t, received.Context.WaitSelectors)
}

func TestChromeSupplierJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"data": productPage})
	}))
	defer server.Close()

	supplier := NewChromeSupplier(server.URL, nil, time.Minute, 5*time.Second)
	content, err := supplier.FetchListingContent(context.Background(), "https://www.tcgplayer.com/product/1", false, "")
	require.NoError(t, err)
	assert.NotNil(t, content.Spotlight)
}

func TestChromeSupplierRateLimitBlocks(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	mockCache := NewMockCacheService()
	supplier := NewChromeSupplier(server.URL, mockCache, time.Minute, 5*time.Second)

	_, err := supplier.FetchListingContent(context.Background(), "https://www.tcgplayer.com/product/1", false, "")
	assert.Equal(t, errors.ErrorTypeRateLimit, errors.TypeOf(err))

	// blocked: the browser is not called again
	_, err = supplier.FetchListingContent(context.Background(), "https://www.tcgplayer.com/product/1", false, "")
	assert.Equal(t, errors.ErrorTypeRateLimit, errors.TypeOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, cached := mockCache.cache[supplier.CacheKey]
	assert.True(t, cached)
}

func TestChromeSupplierServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	supplier := NewChromeSupplier(server.URL, NewMockCacheService(), time.Minute, 5*time.Second)
	_, err := supplier.FetchListingContent(context.Background(), "https://www.tcgplayer.com/product/1", false, "")
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(err))
}

func TestHTTPSupplierFetchListingContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("product-display-settings")
		assert.NoError(t, err)
		if err == nil {
			assert.Equal(t, "sort=price+shipping&size=25", cookie.Value)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(productPage))
	}))
	defer server.Close()

	supplier := NewHTTPSupplier(NewMockCacheService(), time.Minute)
	assert.Equal(t, "http", supplier.GetName())

	content, err := supplier.FetchListingContent(context.Background(), server.URL, false, SortPriceShipping)
	require.NoError(t, err)
	assert.Len(t, content.Grid, 3)
}

func TestExtractHTML(t *testing.T) {
	assert.Equal(t, "<html></html>", extractHTML([]byte(`<html></html>`)))
	assert.Equal(t, "<html>a</html>", extractHTML([]byte(`{"data":{"content":"<html>a</html>"}}`)))
	assert.Equal(t, "<html>b</html>", extractHTML([]byte(`{"result":"<html>b</html>"}`)))
}
