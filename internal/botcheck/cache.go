package botcheck

import "sync"

// DefaultCacheSize bounds the classification cache when no size is configured.
const DefaultCacheSize = 250

// Cache memoizes remote classification results per normalized user-agent.
// It is bounded: when full, the single oldest-inserted entry is evicted
// before a new one is added. Insertion order only — a hit does not refresh
// an entry's position, so this is deliberately not an LRU.
type Cache struct {
	mu      sync.Mutex
	max     int
	order   []string
	entries map[string]Result
}

func NewCache(max int) *Cache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &Cache{
		max:     max,
		entries: make(map[string]Result, max),
	}
}

func (c *Cache) Get(userAgent string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[userAgent]
	return result, ok
}

func (c *Cache) Put(userAgent string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[userAgent]; exists {
		c.entries[userAgent] = result
		return
	}

	if len(c.entries) >= c.max && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[userAgent] = result
	c.order = append(c.order, userAgent)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Reset drops every entry. Used for test isolation.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = nil
	c.entries = make(map[string]Result, c.max)
}
