package framework

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
)

// ScopeKind is one of the scope record types: website, group or store.
type ScopeKind string

const (
	ScopeWebsite ScopeKind = "website"
	ScopeGroup   ScopeKind = "group"
	ScopeStore   ScopeKind = "store"
)

// AdminStoreID is the store id of the admin scope.
const AdminStoreID int64 = 0

// ScopeKinds lists the kinds in creation order: websites before groups
// before stores.
var ScopeKinds = []ScopeKind{ScopeWebsite, ScopeGroup, ScopeStore}

// Table returns the table holding records of kind.
func (k ScopeKind) Table() string {
	switch k {
	case ScopeWebsite:
		return "core_website"
	case ScopeGroup:
		return "core_store_group"
	default:
		return "core_store"
	}
}

// PrimaryKey returns the primary key column of kind's table.
func (k ScopeKind) PrimaryKey() string {
	switch k {
	case ScopeWebsite:
		return "website_id"
	case ScopeGroup:
		return "group_id"
	default:
		return "store_id"
	}
}

// EventPrefix returns the model event prefix, e.g. store_group.
func (k ScopeKind) EventPrefix() string {
	if k == ScopeGroup {
		return "store_group"
	}
	return string(k)
}

// CacheTag returns the cache tag purged when records of kind change.
func (k ScopeKind) CacheTag() string {
	switch k {
	case ScopeWebsite:
		return TagWebsite
	case ScopeGroup:
		return TagStoreGroup
	default:
		return TagStore
	}
}

// ParseScopeKind validates a scope record kind.
func ParseScopeKind(s string) (ScopeKind, error) {
	switch k := ScopeKind(s); k {
	case ScopeWebsite, ScopeGroup, ScopeStore:
		return k, nil
	}
	return "", apperrors.InvalidInput("scope", fmt.Sprintf("unknown scope kind %q", s))
}

type configCacheKey struct {
	storeID int64
	path    string
}

type configCacheEntry struct {
	value string
	ok    bool
}

// Stores keeps the in-memory website, group and store lists and memoizes
// per-store config lookups.
type Stores struct {
	db     *gorm.DB
	config *Config
	events *Events
	cache  *Cache
	log    *logger.Logger

	mu          sync.RWMutex
	websites    map[int64]Website
	groups      map[int64]StoreGroup
	stores      map[int64]Store
	configCache map[configCacheKey]configCacheEntry
}

// NewStores creates store lists backed by db. A nil db yields only the
// admin scope.
func NewStores(db *gorm.DB, config *Config, events *Events, cache *Cache, log *logger.Logger) *Stores {
	if log == nil {
		log = logger.Nop()
	}
	s := &Stores{db: db, config: config, events: events, cache: cache, log: log.WithComponent("stores")}
	s.resetAdminOnly()
	return s
}

func (s *Stores) resetAdminOnly() {
	s.websites = map[int64]Website{0: {ID: 0, Code: "admin", Name: "Admin"}}
	s.groups = map[int64]StoreGroup{0: {ID: 0, Name: "Default"}}
	s.stores = map[int64]Store{0: {ID: 0, Code: "admin", Name: "Admin", IsActive: 1}}
	s.configCache = map[configCacheKey]configCacheEntry{}
}

// Reinit reloads the lists from the database and drops memoized config.
func (s *Stores) Reinit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		s.resetAdminOnly()
		return nil
	}
	db := s.db.WithContext(ctx)
	var websites []Website
	var groups []StoreGroup
	var stores []Store
	if err := db.Order("website_id").Find(&websites).Error; err != nil {
		return database.FromDatabase(err, "website")
	}
	if err := db.Order("group_id").Find(&groups).Error; err != nil {
		return database.FromDatabase(err, "store group")
	}
	if err := db.Order("store_id").Find(&stores).Error; err != nil {
		return database.FromDatabase(err, "store")
	}
	s.websites = make(map[int64]Website, len(websites))
	for _, w := range websites {
		s.websites[w.ID] = w
	}
	s.groups = make(map[int64]StoreGroup, len(groups))
	for _, g := range groups {
		s.groups[g.ID] = g
	}
	s.stores = make(map[int64]Store, len(stores))
	for _, st := range stores {
		s.stores[st.ID] = st
	}
	s.configCache = map[configCacheKey]configCacheEntry{}
	s.log.Debug("stores reinitialized", logger.Fields("websites", len(websites), "groups", len(groups), "stores", len(stores)))
	return nil
}

// Store returns a store by code or numeric id.
func (s *Stores) Store(ref string) (Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		st, ok := s.stores[id]
		return st, ok
	}
	for _, st := range s.stores {
		if st.Code == ref {
			return st, true
		}
	}
	return Store{}, false
}

// Website returns a website by code or numeric id.
func (s *Stores) Website(ref string) (Website, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		w, ok := s.websites[id]
		return w, ok
	}
	for _, w := range s.websites {
		if w.Code == ref {
			return w, true
		}
	}
	return Website{}, false
}

// Group returns a store group by id.
func (s *Stores) Group(id int64) (StoreGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	return g, ok
}

// Stores returns all stores ordered by id, optionally including admin.
func (s *Stores) Stores(withAdmin bool) []Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Store, 0, len(s.stores))
	for _, st := range s.stores {
		if st.ID == AdminStoreID && !withAdmin {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Websites returns all websites ordered by id, optionally including admin.
func (s *Stores) Websites(withAdmin bool) []Website {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Website, 0, len(s.websites))
	for _, w := range s.websites {
		if w.ID == 0 && !withAdmin {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultStore resolves the default website's default group's default store.
func (s *Stores) DefaultStore() (Store, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.websites {
		if w.IsDefault == 0 {
			continue
		}
		if g, ok := s.groups[w.DefaultGroupID]; ok {
			st, ok := s.stores[g.DefaultStoreID]
			return st, ok
		}
	}
	return Store{}, false
}

// Config resolves path for a store, falling back from the store scope to
// its website and then to default. Results are memoized until
// ResetConfigCache or Reinit.
func (s *Stores) Config(storeID int64, path string) (string, bool) {
	key := configCacheKey{storeID: storeID, path: path}
	s.mu.RLock()
	if e, ok := s.configCache[key]; ok {
		s.mu.RUnlock()
		return e.value, e.ok
	}
	st, hasStore := s.stores[storeID]
	w, hasWebsite := s.websites[st.WebsiteID]
	s.mu.RUnlock()

	var candidates []string
	if hasStore {
		candidates = append(candidates, "stores/"+st.Code+"/"+path)
		if hasWebsite {
			candidates = append(candidates, "websites/"+w.Code+"/"+path)
		}
	}
	candidates = append(candidates, "default/"+path)

	var e configCacheEntry
	for _, c := range candidates {
		if v, ok := s.config.GetNode(c); ok {
			e = configCacheEntry{value: v, ok: true}
			break
		}
	}
	s.mu.Lock()
	s.configCache[key] = e
	s.mu.Unlock()
	return e.value, e.ok
}

// ResetConfigCache drops memoized per-store config lookups.
func (s *Stores) ResetConfigCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configCache = map[configCacheKey]configCacheEntry{}
}

// Save force-inserts a scope record with its given primary key and
// dispatches <kind>_save_after.
func (s *Stores) Save(ctx context.Context, db *gorm.DB, kind ScopeKind, row database.Row) error {
	if err := database.Insert(db, kind.Table(), []database.Row{row}); err != nil {
		return database.FromDatabase(err, string(kind))
	}
	return s.events.Dispatch(ctx, kind.EventPrefix()+"_save_after", map[string]any{"object": row})
}

// Load reads a scope record by id.
func (s *Stores) Load(_ context.Context, db *gorm.DB, kind ScopeKind, id int64) (database.Row, error) {
	rows, err := database.Select(db, kind.Table(), database.Row{kind.PrimaryKey(): id})
	if err != nil {
		return nil, database.FromDatabase(err, string(kind))
	}
	if len(rows) == 0 {
		return nil, apperrors.NotFound(string(kind), strconv.FormatInt(id, 10))
	}
	return rows[0], nil
}

// Delete removes a scope record and dispatches <kind>_delete_after.
func (s *Stores) Delete(ctx context.Context, db *gorm.DB, kind ScopeKind, id int64) error {
	if err := database.DeleteIn(db, kind.Table(), kind.PrimaryKey(), []any{id}); err != nil {
		return database.FromDatabase(err, string(kind))
	}
	return s.events.Dispatch(ctx, kind.EventPrefix()+"_delete_after", map[string]any{"id": id})
}

// LoadConfigData merges core_config_data rows into the config tree under
// their scope paths. Rows for unknown scope ids are skipped.
func (s *Stores) LoadConfigData(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	var rows []ConfigData
	if err := s.db.WithContext(ctx).Order("config_id").Find(&rows).Error; err != nil {
		return database.FromDatabase(err, "config data")
	}
	for _, r := range rows {
		var prefix string
		switch r.Scope {
		case "default":
			prefix = "default"
		case "websites":
			w, ok := s.Website(strconv.FormatInt(r.ScopeID, 10))
			if !ok {
				continue
			}
			prefix = "websites/" + w.Code
		case "stores":
			st, ok := s.Store(strconv.FormatInt(r.ScopeID, 10))
			if !ok {
				continue
			}
			prefix = "stores/" + st.Code
		default:
			continue
		}
		s.config.SetNode(prefix+"/"+r.Path, r.Value)
	}
	s.ResetConfigCache()
	return nil
}
