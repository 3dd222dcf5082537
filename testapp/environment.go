package testapp

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/component"
	"github.com/kbukum/fixturekit/config"
	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/eav"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/fixture/processor"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
)

// Options configures an Environment.
type Options struct {
	// Settings are the test-run settings; nil means defaults without a
	// database.
	Settings *config.Settings
	// DB is used instead of opening Settings.Database.
	DB *gorm.DB
	// Runtime is the live runtime the environment substitutes into. Nil
	// creates one holding a live application.
	Runtime *framework.Runtime
	// Modules are initialized on the test application after the built-in
	// core and eav modules.
	Modules []framework.Module
	// FixtureFs is where fixture files are read from; nil means the OS
	// filesystem.
	FixtureFs      afero.Fs
	Logger         *logger.Logger
	TracerProvider trace.TracerProvider
}

// Environment is the test-scoped application together with its fixture
// engine. Start substitutes it into the runtime, Stop puts the live
// globals back.
type Environment struct {
	opts Options
	sub  *Substitution
	log  *logger.Logger

	mu        sync.RWMutex
	app       *framework.App
	engine    *fixture.Engine
	snapshots *Snapshots
	ownedDB   *database.DB
}

// New creates an environment; nothing is substituted until Start.
func New(opts Options) *Environment {
	if opts.Settings == nil {
		opts.Settings = &config.Settings{}
		opts.Settings.ApplyDefaults()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Runtime == nil {
		live := framework.NewApp(framework.Options{Name: "live", Logger: opts.Logger})
		opts.Runtime = framework.NewRuntime(live.Globals())
	}
	if opts.FixtureFs == nil {
		opts.FixtureFs = afero.NewOsFs()
	}
	return &Environment{opts: opts, sub: NewSubstitution(opts.Runtime), log: opts.Logger.WithComponent("testapp")}
}

// Name returns the component name.
func (e *Environment) Name() string { return "testapp" }

// Start builds the test application, substitutes it into the runtime and
// initializes it.
func (e *Environment) Start(ctx context.Context) error {
	if e.sub.State() != StateLive {
		return apperrors.Consistency("test environment already started")
	}
	s := e.opts.Settings

	db := e.opts.DB
	if db == nil && s.Database.Enabled {
		opened, err := database.Open(ctx, s.Database, e.opts.Logger)
		if err != nil {
			return apperrors.Configuration("cannot open test database").WithCause(err)
		}
		e.ownedDB = opened
		db = opened.GormDB
	}

	app := framework.NewApp(framework.Options{
		Name:     s.Name,
		DB:       db,
		Config:   framework.NewConfig(),
		Events:   framework.NewEvents(e.opts.Logger),
		Registry: framework.NewRegistry(),
		Logger:   e.opts.Logger,
	})
	if err := e.sub.ApplyTestScope(app.Globals()); err != nil {
		e.closeDB()
		return err
	}
	runID := e.sub.RunID()
	log := e.log.WithFields(logger.Fields(logger.FieldRunID, runID))
	ctx = logger.ContextWithRunID(ctx, runID)
	runLog := e.opts.Logger.WithContext(ctx)

	storage, err := e.initApp(ctx, app)
	if err != nil {
		_ = e.sub.DiscardTestScope()
		e.closeDB()
		return err
	}
	storage.Set(fixture.KeyRunID, runID)

	snapshots := NewSnapshots(app.Config())
	snapshots.SaveScopeSnapshot()

	registry := processor.DefaultRegistry(app, snapshots, runLog)
	if len(s.Fixture.Processors) > 0 {
		registry = registry.Select(s.Fixture.Processors)
	}
	engine := fixture.NewEngine(registry,
		fixture.WithStorage(storage),
		fixture.WithLoader(fixture.NewFileLoader(e.opts.FixtureFs, s.Fixture.Dirs)),
		fixture.WithLogger(runLog),
		fixture.WithTracerProvider(e.opts.TracerProvider),
		fixture.WithRootFS(app.FS()),
	)

	e.mu.Lock()
	e.app, e.engine, e.snapshots = app, engine, snapshots
	e.mu.Unlock()
	log.Info("test scope applied", logger.Fields("modules", len(app.Modules())))
	return nil
}

// initApp runs the test application's initialization and returns the
// shared storage it installed into the registry.
func (e *Environment) initApp(ctx context.Context, app *framework.App) (*fixture.Storage, error) {
	s := e.opts.Settings
	app.Cache().AllowOnly(s.Cache.Allowed)

	builtin := []framework.Module{framework.CoreModule{}, eav.Module{}}
	modules := append(builtin, e.opts.Modules...)
	if err := app.InitModules(ctx, enabledModules(s.Modules, builtin), modules...); err != nil {
		return nil, apperrors.Configuration("module initialization failed").WithCause(err)
	}
	app.SetArea(framework.AreaGlobal)

	if app.DB() != nil {
		if err := app.Stores().Reinit(ctx); err != nil {
			return nil, err
		}
		if err := app.Stores().LoadConfigData(ctx); err != nil {
			return nil, err
		}
	}
	if err := e.applyBaseURLs(ctx, app); err != nil {
		return nil, err
	}

	app.SetLayout(framework.NewLayout(framework.AreaFrontend))
	app.Events().LoadArea(framework.AreaTest)

	storage := fixture.NewStorage()
	if err := app.Registry().Register(fixture.StorageRegistryKey, storage); err != nil {
		return nil, err
	}
	return storage, nil
}

// enabledModules keeps the built-in modules enabled whenever the settings
// restrict the module list.
func enabledModules(configured []string, builtin []framework.Module) []string {
	if len(configured) == 0 {
		return nil
	}
	out := append([]string(nil), configured...)
	for _, m := range builtin {
		out = append(out, m.Name())
	}
	return out
}

func (e *Environment) applyBaseURLs(ctx context.Context, app *framework.App) error {
	urls := map[string]string{
		framework.PathUnsecureBaseURL: e.opts.Settings.BaseURL.Unsecure,
		framework.PathSecureBaseURL:   e.opts.Settings.BaseURL.Secure,
	}
	for _, path := range []string{framework.PathUnsecureBaseURL, framework.PathSecureBaseURL} {
		if urls[path] == "" {
			continue
		}
		backend, err := app.Models().Backend(framework.BackendBaseURL)
		if err != nil {
			return err
		}
		v := &framework.ConfigValue{Path: "default/" + path, Value: urls[path]}
		if err := backend.BeforeSave(ctx, v); err != nil {
			return apperrors.Configuration(fmt.Sprintf("invalid base url %q", urls[path])).WithCause(err)
		}
		app.Config().SetNode(v.Path, v.Value)
	}
	return nil
}

// Stop restores the live globals and closes a database the environment
// opened itself.
func (e *Environment) Stop(_ context.Context) error {
	if e.sub.State() != StateTestScoped {
		return nil
	}
	err := e.sub.DiscardTestScope()
	e.closeDB()
	e.log.Info("test scope discarded")
	return err
}

func (e *Environment) closeDB() {
	if e.ownedDB != nil {
		_ = e.ownedDB.Close()
		e.ownedDB = nil
	}
}

// Health reports whether the test scope is applied.
func (e *Environment) Health(_ context.Context) component.Health {
	h := component.Health{Name: e.Name(), Status: component.StatusHealthy}
	if e.sub.State() != StateTestScoped {
		h.Status = component.StatusUnhealthy
		h.Message = "test scope not applied"
	}
	return h
}

// Reset clears per-test state: dispatched event counts, mocks, layout and
// index history.
func (e *Environment) Reset(_ context.Context) error {
	app := e.App()
	if app == nil {
		return apperrors.Consistency("test environment not started")
	}
	app.Events().ResetDispatched()
	app.Models().ResetMocks()
	app.Layout().Reset()
	app.Indexer().ResetHistory()
	return nil
}

type environmentSnapshot struct {
	config   framework.ConfigSnapshot
	registry map[string]any
}

// Snapshot captures the configuration tree and the registry entries.
func (e *Environment) Snapshot(_ context.Context) (interface{}, error) {
	app := e.App()
	if app == nil {
		return nil, apperrors.Consistency("test environment not started")
	}
	snap := environmentSnapshot{config: app.Config().Snapshot(), registry: map[string]any{}}
	for _, k := range app.Registry().Keys() {
		snap.registry[k] = app.Registry().Get(k)
	}
	return snap, nil
}

// Restore puts back a Snapshot: the configuration tree and the exact
// registry entries, dropping keys added since.
func (e *Environment) Restore(_ context.Context, snapshot interface{}) error {
	app := e.App()
	if app == nil {
		return apperrors.Consistency("test environment not started")
	}
	snap, ok := snapshot.(environmentSnapshot)
	if !ok {
		return apperrors.InvalidInput("snapshot", fmt.Sprintf("unexpected snapshot type %T", snapshot))
	}
	app.Config().Restore(snap.config)
	app.Stores().ResetConfigCache()
	reg := app.Registry()
	for _, k := range reg.Keys() {
		if _, keep := snap.registry[k]; !keep {
			reg.Unregister(k)
		}
	}
	for k, v := range snap.registry {
		reg.Set(k, v)
	}
	return nil
}

// App returns the test application, nil before Start.
func (e *Environment) App() *framework.App {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.app
}

// Engine returns the fixture engine, nil before Start.
func (e *Environment) Engine() *fixture.Engine {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.engine
}

// Snapshots returns the configuration snapshot stack used by the config
// processors.
func (e *Environment) Snapshots() *Snapshots {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshots
}

// Substitution returns the substitution state machine.
func (e *Environment) Substitution() *Substitution { return e.sub }

// Runtime returns the runtime the environment substitutes into.
func (e *Environment) Runtime() *framework.Runtime { return e.opts.Runtime }
