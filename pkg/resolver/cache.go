package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

const keyPrefixRunes = 100

type cacheEntry struct {
	source string
	result string
}

// Cache is a bounded FIFO map from (scope, source prefix, instruction) to a
// previously computed result. Entries remember their full source and are
// only served for that exact source, so two texts sharing a prefix never
// see each other's results.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]cacheEntry
	order    []string
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 100
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]cacheEntry, capacity),
		order:    make([]string, 0, capacity),
	}
}

// CacheKey fingerprints a resolution request.
func CacheKey(scope Scope, source, instruction string) string {
	prefix := []rune(source)
	if len(prefix) > keyPrefixRunes {
		prefix = prefix[:keyPrefixRunes]
	}

	h := sha256.New()
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write([]byte(string(prefix)))
	h.Write([]byte{0})
	h.Write([]byte(instruction))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) Get(scope Scope, source, instruction string) (string, bool) {
	key := CacheKey(scope, source, instruction)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || entry.source != source {
		return "", false
	}
	return entry.result, true
}

func (c *Cache) Put(scope Scope, source, instruction, result string) {
	key := CacheKey(scope, source, instruction)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = cacheEntry{source: source, result: result}
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = cacheEntry{source: source, result: result}
	c.order = append(c.order, key)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
