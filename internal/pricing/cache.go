package pricing

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type cachedPrice struct {
	price    float64
	storedAt time.Time
}

// priceCache holds spot prices per symbol for a fixed TTL measured from
// write time. Expiry is checked lazily on read; there is no background
// eviction.
type priceCache struct {
	mu     sync.RWMutex
	ttl    time.Duration
	clock  clockwork.Clock
	prices map[string]cachedPrice
}

func newPriceCache(ttl time.Duration, clock clockwork.Clock) *priceCache {
	return &priceCache{
		ttl:    ttl,
		clock:  clock,
		prices: make(map[string]cachedPrice),
	}
}

func (c *priceCache) get(symbol string) (float64, bool) {
	c.mu.RLock()
	entry, ok := c.prices[symbol]
	c.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if c.clock.Since(entry.storedAt) > c.ttl {
		return 0, false
	}
	return entry.price, true
}

func (c *priceCache) put(symbol string, price float64) {
	c.mu.Lock()
	c.prices[symbol] = cachedPrice{price: price, storedAt: c.clock.Now()}
	c.mu.Unlock()
}

func (c *priceCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.prices)
}

func (c *priceCache) clear() {
	c.mu.Lock()
	c.prices = make(map[string]cachedPrice)
	c.mu.Unlock()
}
