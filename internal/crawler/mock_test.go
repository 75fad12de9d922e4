package crawler

import (
	"time"

	"sjsage522/pricewatcher/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

var _ cache.CacheService = (*MockCacheService)(nil)

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

const productPage = `<html><body>
<div class="lazy-image__wrapper">
	<img src="https://img.example/200.jpg" srcset="https://img.example/200.jpg 200w, https://img.example/1000.jpg 1000w">
</div>
<section class="spotlight">
	<span class="spotlight__price">$10.00</span>
	<section class="spotlight__condition">Near Mint</section>
	<div class="spotlight__shipping">+ <span class="shipping-messages__price">$2.00</span> Shipping</div>
</section>
<div class="listing-item">
	<div class="listing-item__listing-data__info">
		<div class="listing-item__listing-data__info__condition"><a>Near Mint</a></div>
		<div class="listing-item__listing-data__info__price">$8.00</div>
		<div>Shipping: Included</div>
	</div>
</div>
<div class="listing-item">
	<div class="listing-item__listing-data__listo">Sponsored</div>
</div>
<div class="listing-item">
	<div class="listing-item__listing-data__info">
		<div class="listing-item__listing-data__info__condition"><a>Lightly Played</a></div>
		<div class="listing-item__listing-data__info__price">$5.00</div>
		<div>+ <span class="shipping-messages__price">$0.99</span> Shipping</div>
	</div>
</div>
</body></html>`
