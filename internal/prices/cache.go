package prices

import (
	"context"
	"strings"
	"sync"
)

// BaselineID is always included in batched refreshes, matching the
// original bot behavior.
const BaselineID = "bitcoin"

// Cache holds the last known USD unit price per currency id. Entries are
// advisory: a missing or stale price must never block or corrupt portfolio
// data, so every failure path leaves the cache exactly as it was.
type Cache struct {
	client *Client

	mu     sync.RWMutex
	values map[string]float64
}

func NewCache(client *Client) *Cache {
	return &Cache{
		client: client,
		values: make(map[string]float64),
	}
}

// NewCacheWithValues seeds the cache, useful for tests.
func NewCacheWithValues(client *Client, values map[string]float64) *Cache {
	c := NewCache(client)
	for id, p := range values {
		c.values[strings.ToLower(id)] = p
	}
	return c
}

// Refresh performs one batched lookup for all ids (plus the baseline id)
// and overwrites the entry for every id present in the response. Ids the
// source omits keep their previous value. On any fetch failure nothing is
// mutated and the error is returned for logging only; callers must not
// treat it as fatal.
func (c *Cache) Refresh(ctx context.Context, ids []string) error {
	want := make([]string, 0, len(ids)+1)
	want = append(want, BaselineID)
	want = append(want, ids...)

	fetched, err := c.client.FetchPrices(ctx, want)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, price := range fetched {
		c.values[id] = price
	}
	return nil
}

// LookupOrFetch returns the cached price for id, falling back to a
// single-id lookup on a miss. A successful lookup is inserted into the
// cache; a failed one (network error or unknown id) leaves it unchanged.
func (c *Cache) LookupOrFetch(ctx context.Context, id string) (float64, error) {
	id = strings.ToLower(strings.TrimSpace(id))

	c.mu.RLock()
	price, ok := c.values[id]
	c.mu.RUnlock()
	if ok {
		return price, nil
	}

	price, err := c.client.FetchPrice(ctx, id)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.values[id] = price
	c.mu.Unlock()
	return price, nil
}

// Price returns the cached price for id, if any.
func (c *Cache) Price(id string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.values[strings.ToLower(id)]
	return p, ok
}

// Len reports how many currencies currently have a cached price.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
