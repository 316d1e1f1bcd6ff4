package service

import (
	"strconv"
	"sync"

	"github.com/XINRUIQI/CASA0028-Assessment01/internal/domain"
)

// cacheKey identifies one enrichment result: the snapshot version plus the
// exact threshold. A new snapshot changes the version, so stale entries age
// out of the LRU on their own.
func cacheKey(version string, threshold float64) string {
	return version + "|" + strconv.FormatFloat(threshold, 'g', -1, 64)
}

// enrichCache is a simple thread-safe LRU for enriched panels. Cached slices
// are shared between callers and must be treated as immutable.
type enrichCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.EnrichedRecord
	prev  *entry
	next  *entry
}

func newEnrichCache(maxEntries int) *enrichCache {
	return &enrichCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *enrichCache) get(key string) ([]domain.EnrichedRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *enrichCache) put(key string, value []domain.EnrichedRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *enrichCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *enrichCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *enrichCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *enrichCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
