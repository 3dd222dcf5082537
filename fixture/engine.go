package fixture

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/observability"
)

// Engine merges fixture fragments into one tree per scope and drives the
// registered processors through apply and discard.
type Engine struct {
	registry *Registry
	storage  *Storage
	loader   *FileLoader
	decls    *Declarations
	log      *logger.Logger
	tracer   trace.Tracer
	meter    metric.MeterProvider
	metrics  *observability.Metrics

	mu      sync.Mutex
	scope   Scope
	tree    *Map
	options Options
	// classOptions are restored when a local fixture is discarded.
	classOptions Options
	fsStack      []afero.Fs
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithStorage shares storage with other components.
func WithStorage(s *Storage) EngineOption {
	return func(e *Engine) { e.storage = s }
}

// WithLoader sets the fixture file loader.
func WithLoader(l *FileLoader) EngineOption {
	return func(e *Engine) { e.loader = l }
}

// WithDeclarations sets the annotation source.
func WithDeclarations(d *Declarations) EngineOption {
	return func(e *Engine) { e.decls = d }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithTracerProvider sets where apply/discard spans go.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) { e.tracer = observability.Tracer(tp, "github.com/kbukum/fixturekit/fixture") }
}

// WithMeterProvider sets where the per-kind run counter and duration
// histogram go.
func WithMeterProvider(mp metric.MeterProvider) EngineOption {
	return func(e *Engine) { e.meter = mp }
}

// WithRootFS seeds the VFS root stack.
func WithRootFS(fs afero.Fs) EngineOption {
	return func(e *Engine) { e.fsStack = []afero.Fs{fs} }
}

// NewEngine creates an engine dispatching to registry, starting in local
// scope.
func NewEngine(registry *Registry, opts ...EngineOption) *Engine {
	e := &Engine{registry: registry, scope: ScopeLocal, tree: NewMap()}
	for _, opt := range opts {
		opt(e)
	}
	if e.storage == nil {
		e.storage = NewStorage()
	}
	if e.loader == nil {
		e.loader = NewFileLoader(nil, nil)
	}
	if e.decls == nil {
		e.decls = NewDeclarations()
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	e.log = e.log.WithComponent("fixture")
	if e.tracer == nil {
		e.tracer = observability.Tracer(nil, "github.com/kbukum/fixturekit/fixture")
	}
	if len(e.fsStack) == 0 {
		e.fsStack = []afero.Fs{afero.NewMemMapFs()}
	}
	m, err := observability.NewMetrics(e.meter, "github.com/kbukum/fixturekit/fixture")
	if err != nil {
		e.log.Warn("fixture metrics disabled", logger.Fields(logger.FieldError, err.Error()))
	}
	e.metrics = m
	return e
}

// Registry returns the processor registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Storage returns the shared storage.
func (e *Engine) Storage() *Storage { return e.storage }

// Declarations returns the annotation source.
func (e *Engine) Declarations() *Declarations { return e.decls }

// SetScope switches the current scope.
func (e *Engine) SetScope(s Scope) error {
	if !s.Valid() {
		return apperrors.InvalidInput("scope", "unknown fixture scope "+string(s))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scope = s
	return nil
}

// Scope returns the current scope.
func (e *Engine) Scope() Scope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scope
}

// IsScopeLocal, IsScopeShared and IsScopeDefault test the current scope.
func (e *Engine) IsScopeLocal() bool   { return e.Scope() == ScopeLocal }
func (e *Engine) IsScopeShared() bool  { return e.Scope() == ScopeShared }
func (e *Engine) IsScopeDefault() bool { return e.Scope() == ScopeDefault }

// StorageData reads key in the current scope.
func (e *Engine) StorageData(key string) any {
	return e.storage.Get(StorageKey(e.Scope(), key))
}

// ScopeStorageData reads key in scope, whatever the current one is.
func (e *Engine) ScopeStorageData(scope Scope, key string) any {
	return e.storage.Get(StorageKey(scope, key))
}

// SetStorageData writes key in the current scope. A nil value removes it.
func (e *Engine) SetStorageData(key string, value any) {
	e.storage.Set(StorageKey(e.Scope(), key), value)
}

// Options returns the processing switches of the current test.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.options
}

// SetOptions replaces the processing switches.
func (e *Engine) SetOptions(o Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.options = o
}

// PushFS makes fs the active virtual filesystem root.
func (e *Engine) PushFS(fs afero.Fs) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fsStack = append(e.fsStack, fs)
}

// PopFS drops the active root and returns the one now active. The base
// root is never popped.
func (e *Engine) PopFS() afero.Fs {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.fsStack) > 1 {
		e.fsStack = e.fsStack[:len(e.fsStack)-1]
	}
	return e.fsStack[len(e.fsStack)-1]
}

// FS returns the active root.
func (e *Engine) FS() afero.Fs {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fsStack[len(e.fsStack)-1]
}

// FSDepth returns the size of the root stack.
func (e *Engine) FSDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.fsStack)
}

// Tree returns a copy of the pending (not yet applied) fixture tree.
func (e *Engine) Tree() *Map {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.Clone()
}

// Merge adds fragment to the pending tree.
func (e *Engine) Merge(fragment *Map) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tree.Merge(fragment)
}

// LoadYaml loads one fixture file by path and merges it.
func (e *Engine) LoadYaml(path string) error {
	m, err := e.loader.LoadFile(path)
	if err != nil {
		return err
	}
	e.Merge(m)
	return nil
}

func (e *Engine) loadNames(class string, names []string) error {
	dir := e.decls.Dir(class)
	for _, name := range names {
		m, err := e.loader.Load(dir, name)
		if err != nil {
			return err
		}
		e.log.Debug("fixture loaded", logger.Fields(logger.FieldFixture, name, logger.FieldScope, string(e.Scope())))
		e.Merge(m)
	}
	return nil
}

// LoadForClass merges the shared fixtures declared on class and adopts the
// class processing options. They stay in effect until the next class.
func (e *Engine) LoadForClass(class string) error {
	opts := e.decls.ClassOptions(class)
	e.mu.Lock()
	e.classOptions = opts
	e.options = opts
	e.mu.Unlock()
	return e.loadNames(class, e.decls.SharedFixtures(class))
}

// LoadByTestCase merges the local fixtures declared for tc and adopts its
// processing options.
func (e *Engine) LoadByTestCase(tc TestCase) error {
	e.SetOptions(e.decls.MethodOptions(tc))
	return e.loadNames(tc.Class(), e.decls.LocalFixtures(tc))
}

// Apply hands every kind of the pending tree to its processor, in tree
// order. The tree is recorded in storage before any processor runs, so a
// failed apply can still be discarded; the pending tree is then cleared.
// Kinds are not atomic with each other: a failure leaves earlier kinds
// applied.
func (e *Engine) Apply(ctx context.Context) error {
	if e.StorageData(KeyFixture) != nil {
		return apperrors.Consistency("fixture already applied in this scope; discard was not called").
			WithDetail("scope", string(e.Scope()))
	}

	e.mu.Lock()
	tree := e.tree
	e.tree = NewMap()
	e.mu.Unlock()

	if tree.Len() == 0 {
		return nil
	}
	e.SetStorageData(KeyFixture, tree)

	for _, kind := range tree.Keys() {
		p, ok := e.registry.Get(kind)
		if !ok {
			e.registry.Warn(kind, "no processor registered")
			continue
		}
		if err := e.run(ctx, observability.SpanFixtureApply, kind, func(ctx context.Context) error {
			if err := p.Initialize(ctx, e); err != nil {
				return err
			}
			return p.Apply(ctx, tree.Value(kind), kind, e)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Discard reverses the last Apply of the current scope. Kinds are
// discarded in reverse apply order; every kind is attempted even when one
// fails. Without a preceding Apply it does nothing.
func (e *Engine) Discard(ctx context.Context) error {
	e.mu.Lock()
	e.tree = NewMap()
	e.mu.Unlock()

	tree, _ := e.StorageData(KeyFixture).(*Map)
	e.SetStorageData(KeyFixture, nil)
	if e.IsScopeLocal() {
		e.mu.Lock()
		e.options = e.classOptions
		e.mu.Unlock()
	}
	if tree == nil {
		return nil
	}

	var errs []error
	kinds := tree.Keys()
	for i := len(kinds) - 1; i >= 0; i-- {
		kind := kinds[i]
		p, ok := e.registry.Get(kind)
		if !ok {
			continue
		}
		if err := e.run(ctx, observability.SpanFixtureDiscard, kind, func(ctx context.Context) error {
			return p.Discard(ctx, tree.Value(kind), kind, e)
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// run wraps one processor call in a span, a log line and the run metrics.
func (e *Engine) run(ctx context.Context, span, kind string, fn func(context.Context) error) error {
	scope := string(e.Scope())
	log := e.log.WithFields(logger.Fields(logger.FieldProcessor, kind, logger.FieldScope, scope))
	ctx, op := observability.StartOperation(ctx, e.tracer, log, span,
		attribute.String(observability.AttrKind, kind),
		attribute.String(observability.AttrScope, scope))
	err := fn(ctx)
	op.End(err)
	e.metrics.Record(ctx, span, kind, scope, op.Duration(), err)
	return err
}
