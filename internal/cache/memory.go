package cache

import (
	"container/list"
	"sync"
	"time"
)

// memoryCache is the fast tier: an entry-count-bounded LRU. Payloads here are
// already small (translated text) or recently played (audio), so counting
// entries rather than bytes keeps the bound predictable.
type memoryCache struct {
	capacity int

	items    map[string]*list.Element
	eviction *list.List

	mu sync.Mutex
}

type memoryEntry struct {
	key      string
	payload  []byte
	storedAt time.Time
}

func newMemoryCache(capacity int) *memoryCache {
	return &memoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// get returns the payload and its storage time. The caller decides whether
// the entry is stale; this tier only tracks recency.
func (c *memoryCache) get(key string) ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, time.Time{}, false
	}

	c.eviction.MoveToFront(elem)
	entry := elem.Value.(*memoryEntry)
	return entry.payload, entry.storedAt, true
}

func (c *memoryCache) put(key string, payload []byte, storedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*memoryEntry)
		entry.payload = payload
		entry.storedAt = storedAt
		return
	}

	for c.eviction.Len() >= c.capacity && c.eviction.Len() > 0 {
		oldest := c.eviction.Back()
		if oldest == nil {
			break
		}
		c.eviction.Remove(oldest)
		delete(c.items, oldest.Value.(*memoryEntry).key)
	}

	c.items[key] = c.eviction.PushFront(&memoryEntry{key: key, payload: payload, storedAt: storedAt})
}

func (c *memoryCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.Remove(elem)
		delete(c.items, key)
	}
}

func (c *memoryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

func (c *memoryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}
