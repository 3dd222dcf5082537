package fixture

import (
	"sort"
	"sync"
)

// StorageRegistryKey is the registry key the shared storage is installed
// under in a test-scoped application.
const StorageRegistryKey = "_fixture/storage"

// Storage keys used by the engine itself.
const (
	KeyFixture = "fixture"
	KeyRunID   = "run_id"
)

// StorageKey namespaces key by scope: <scope>_<key>.
func StorageKey(scope Scope, key string) string {
	return string(scope) + "_" + key
}

// Storage is the process-wide scratch space processors use to remember
// what they changed. A nil value counts as empty.
type Storage struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewStorage creates an empty storage.
func NewStorage() *Storage {
	return &Storage{data: map[string]any{}}
}

// Get returns the value under key, or nil.
func (s *Storage) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key]
}

// Has reports whether key holds a non-nil value.
func (s *Storage) Has(key string) bool {
	return s.Get(key) != nil
}

// Set stores value under key; a nil value clears the key.
func (s *Storage) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == nil {
		delete(s.data, key)
		return
	}
	s.data[key] = value
}

// Delete clears key.
func (s *Storage) Delete(key string) {
	s.Set(key, nil)
}

// Keys returns the occupied keys, sorted.
func (s *Storage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset clears everything.
func (s *Storage) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]any{}
}
