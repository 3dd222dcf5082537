package processor

import (
	"context"

	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
)

// Registry clears registry entries so the code under test resolves them
// afresh, and puts the exact previous values back on discard.
//
//	registry:
//	  singleton: [eav/config]
//	  helper: [catalog]
//	  key: [current_product]
type Registry struct {
	base
}

// NewRegistry creates the registry processor.
func NewRegistry(app *framework.App, log *logger.Logger) *Registry {
	return &Registry{base: newBase(app, KindRegistry, log)}
}

var registryPrefixes = map[string]string{
	"singleton":          framework.SingletonPrefix,
	"resource_singleton": framework.ResourceSingletonPrefix,
	"helper":             framework.HelperPrefix,
	"key":                "",
}

type registryEntry struct {
	key     string
	value   any
	present bool
}

// replacedEntries is the storage record of a registry apply.
type replacedEntries struct {
	entries []registryEntry
}

// Apply replaces the named registry entries, remembering what was there.
func (p *Registry) Apply(_ context.Context, data any, kind string, f fixture.Fixture) error {
	if err := p.claim(f); err != nil {
		return err
	}
	groups, err := asMap(kind, data)
	if err != nil {
		return err
	}
	var keys []string
	for _, group := range groups.Keys() {
		prefix, ok := registryPrefixes[group]
		if !ok {
			return apperrors.InvalidInput(kind, "unknown registry group "+group)
		}
		for _, name := range stringList(groups.Value(group)) {
			keys = append(keys, prefix+name)
		}
	}

	reg := p.app.Registry()
	replaced := &replacedEntries{}
	for _, key := range keys {
		value, present := reg.Lookup(key)
		replaced.entries = append(replaced.entries, registryEntry{key: key, value: value, present: present})
		reg.Set(key, nil)
	}
	f.SetStorageData(p.key, replaced)
	p.log.Debug("registry entries cleared", logger.Fields("count", len(keys)))
	return nil
}

// Discard restores replaced entries in reverse order and unregisters new
// ones.
func (p *Registry) Discard(_ context.Context, _ any, _ string, f fixture.Fixture) error {
	replaced, ok := f.StorageData(p.key).(*replacedEntries)
	if !ok {
		return nil
	}
	f.SetStorageData(p.key, nil)
	reg := p.app.Registry()
	for i := len(replaced.entries) - 1; i >= 0; i-- {
		e := replaced.entries[i]
		if e.present {
			reg.Set(e.key, e.value)
		} else {
			reg.Unregister(e.key)
		}
	}
	return nil
}
