package processor

import (
	"context"

	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
)

// CacheAll switches every cache type at once. Types named next to it
// override it.
const CacheAll = "all"

// Cache switches cache types on or off for the fixture's lifetime.
//
//	cache:
//	  all: false
//	  config: true
type Cache struct {
	base
}

// NewCache creates the cache processor.
func NewCache(app *framework.App, log *logger.Logger) *Cache {
	return &Cache{base: newBase(app, KindCache, log)}
}

// Apply overlays the requested type switches after saving the current ones.
func (p *Cache) Apply(_ context.Context, data any, kind string, f fixture.Fixture) error {
	if err := p.claim(f); err != nil {
		return err
	}
	opts, err := asMap(kind, data)
	if err != nil {
		return err
	}
	cache := p.app.Cache()
	f.SetStorageData(p.key, cache.Options())

	overlay := map[string]bool{}
	if opts.Has(CacheAll) {
		all := util.Bool(opts.Value(CacheAll))
		for _, t := range cache.Types() {
			overlay[t] = all
		}
	}
	for _, t := range opts.Keys() {
		if t != CacheAll {
			overlay[t] = util.Bool(opts.Value(t))
		}
	}
	cache.SetOptions(overlay)
	p.log.Debug("cache options applied", logger.Fields("types", len(overlay)))
	return nil
}

// Discard puts back the saved switches, forgetting types the fixture added.
func (p *Cache) Discard(_ context.Context, _ any, _ string, f fixture.Fixture) error {
	prev, ok := f.StorageData(p.key).(map[string]bool)
	if !ok {
		return nil
	}
	f.SetStorageData(p.key, nil)
	p.app.Cache().ReplaceOptions(prev)
	return nil
}
