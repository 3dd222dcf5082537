package framework

import (
	"sort"
	"sync"

	apperrors "github.com/kbukum/fixturekit/errors"
)

// Registry key prefixes used by Models for memoized instances.
const (
	SingletonPrefix         = "_singleton/"
	ResourceSingletonPrefix = "_resource_singleton/"
	HelperPrefix            = "_helper/"
)

// Registry is the process-wide named value store. A key may hold nil, which
// is distinct from the key being absent.
type Registry struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{values: map[string]any{}}
}

// Register stores value under key. Registering an existing key is a
// consistency error.
func (r *Registry) Register(key string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.values[key]; ok {
		return apperrors.Consistency("registry key already exists").WithDetail("key", key)
	}
	r.values[key] = value
	return nil
}

// Set stores value under key, replacing any previous value.
func (r *Registry) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
}

// Get returns the value under key; nil when absent.
func (r *Registry) Get(key string) any {
	v, _ := r.Lookup(key)
	return v
}

// Lookup returns the value and whether the key is present.
func (r *Registry) Lookup(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present, even with a nil value.
func (r *Registry) Has(key string) bool {
	_, ok := r.Lookup(key)
	return ok
}

// Unregister removes key.
func (r *Registry) Unregister(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
}

// Keys returns all keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}
