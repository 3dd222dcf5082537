package processor

import (
	"context"
	"fmt"

	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
)

// Fixture kinds handled by this package.
const (
	KindTable     = "table"
	KindEAV       = "eav"
	KindAttribute = "attribute"
	KindScope     = "scope"
	KindConfig    = "config"
	KindConfigXML = "config_xml"
	KindRegistry  = "registry"
	KindCache     = "cache"
	KindVFS       = "vfs"
)

// base carries what every processor shares: the application it mutates and
// the storage key it guards.
type base struct {
	app *framework.App
	key string
	log *logger.Logger
}

func newBase(app *framework.App, key string, log *logger.Logger) base {
	if log == nil {
		log = app.Logger()
	}
	return base{app: app, key: key, log: log.WithComponent("processor." + key)}
}

func (b base) Initialize(context.Context, fixture.Fixture) error { return nil }

// claim fails when the slot of the current scope still holds data from an
// apply that was never discarded.
func (b base) claim(f fixture.Fixture) error {
	if f.StorageData(b.key) != nil {
		return apperrors.Consistency(fmt.Sprintf("%s fixture already applied in %s scope", b.key, f.Scope())).
			WithDetail("kind", b.key)
	}
	return nil
}

// shared returns the slot value recorded by the shared scope when f runs in
// local scope.
func (b base) shared(f fixture.Fixture) any {
	if !f.IsScopeLocal() {
		return nil
	}
	return f.ScopeStorageData(fixture.ScopeShared, b.key)
}

func asMap(kind string, data any) (*fixture.Map, error) {
	if data == nil {
		return fixture.NewMap(), nil
	}
	if m, ok := fixture.AsMap(data); ok {
		return m, nil
	}
	raw, ok := data.(map[string]any)
	if !ok {
		return nil, apperrors.InvalidInput(kind, fmt.Sprintf("expected a mapping, got %T", data))
	}
	m := fixture.NewMap()
	for _, k := range util.SortedKeys(raw) {
		m.Set(k, raw[k])
	}
	return m, nil
}

// ConfigScope is the snapshot stack the config processors save to before
// mutating configuration and restore from on discard.
type ConfigScope interface {
	SaveScopeSnapshot()
	LoadScopeSnapshot() error
	FlushScopeSnapshot()
}

// DefaultRegistry registers every processor of this package for app.
func DefaultRegistry(app *framework.App, snapshots ConfigScope, log *logger.Logger) *fixture.Registry {
	return fixture.NewRegistry(log).
		Register(KindScope, NewScope(app, log)).
		Register(KindConfig, NewConfig(app, snapshots, log)).
		Register(KindConfigXML, NewConfigXML(app, snapshots, log)).
		Register(KindCache, NewCache(app, log)).
		Register(KindRegistry, NewRegistry(app, log)).
		Register(KindAttribute, NewAttribute(app, log)).
		Register(KindTable, NewTable(app, log)).
		Register(KindEAV, NewEAV(app, log)).
		Register(KindVFS, NewVFS(app, log))
}

// Kinds lists the kinds DefaultRegistry registers, in registration order.
func Kinds() []string {
	return []string{KindScope, KindConfig, KindConfigXML, KindCache, KindRegistry, KindAttribute, KindTable, KindEAV, KindVFS}
}
