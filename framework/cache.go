package framework

import (
	"sort"
	"sync"
)

// Cache tags used for scope records.
const (
	TagStore      = "store"
	TagStoreGroup = "store_group"
	TagWebsite    = "website"
	TagConfig     = "config"
)

type cacheEntry struct {
	data string
	tags map[string]bool
}

// Cache holds the cache type switches and tagged cache entries.
type Cache struct {
	mu      sync.RWMutex
	types   map[string]bool
	entries map[string]cacheEntry
}

// NewCache creates a cache with the given types, all enabled.
func NewCache(types ...string) *Cache {
	c := &Cache{types: map[string]bool{}, entries: map[string]cacheEntry{}}
	for _, t := range types {
		c.types[t] = true
	}
	return c
}

// DefaultCacheTypes are the cache types a fresh application knows about.
var DefaultCacheTypes = []string{"config", "layout", "block_html", "translate", "collections", "eav", "config_api"}

// RegisterType declares a cache type.
func (c *Cache) RegisterType(code string, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[code] = enabled
}

// Types returns all declared type codes, sorted.
func (c *Cache) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.types))
	for t := range c.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IsEnabled reports whether type code is enabled. Unknown types are disabled.
func (c *Cache) IsEnabled(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.types[code]
}

// Options returns a copy of the type switches.
func (c *Cache) Options() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]bool, len(c.types))
	for k, v := range c.types {
		out[k] = v
	}
	return out
}

// SetOptions overlays type switches; types not mentioned are unchanged.
func (c *Cache) SetOptions(opts map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range opts {
		c.types[k] = v
	}
}

// ReplaceOptions makes opts the complete set of type switches; types not in
// opts are forgotten.
func (c *Cache) ReplaceOptions(opts map[string]bool) {
	types := make(map[string]bool, len(opts))
	for k, v := range opts {
		types[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = types
}

// AllowOnly disables every type not present in allowed. An empty list
// leaves all types untouched.
func (c *Cache) AllowOnly(allowed []string) {
	if len(allowed) == 0 {
		return
	}
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for t := range c.types {
		c.types[t] = set[t]
	}
}

// Save stores data under id with tags.
func (c *Cache) Save(id, data string, tags ...string) {
	e := cacheEntry{data: data, tags: map[string]bool{}}
	for _, t := range tags {
		e.tags[t] = true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = e
}

// Load returns the entry stored under id.
func (c *Cache) Load(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e.data, ok
}

// Remove deletes id.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// CleanTags removes every entry carrying any of tags and returns how many
// were removed.
func (c *Cache) CleanTags(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.entries {
		for _, t := range tags {
			if e.tags[t] {
				delete(c.entries, id)
				n++
				break
			}
		}
	}
	return n
}

// Clean drops every entry.
func (c *Cache) Clean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry{}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
