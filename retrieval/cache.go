package retrieval

import (
	"container/list"
	"sync"
)

type queryCache struct {
	maxEntries int
	cache      map[string][]float32
	order      *list.List
	mu         sync.Mutex
}

func newQueryCache(maxEntries int) *queryCache {
	return &queryCache{
		maxEntries: maxEntries,
		cache:      make(map[string][]float32),
		order:      list.New(),
	}
}

func (c *queryCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if vector, found := c.cache[key]; found {
		return vector, true
	}
	return nil, false
}

func (c *queryCache) Put(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.cache[key]; found {
		return
	}

	if c.order.Len() >= c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.cache, oldest.Value.(string))
		}
	}

	c.order.PushFront(key)
	c.cache[key] = vector
}
