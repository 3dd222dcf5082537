package framework

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/di"
	"github.com/kbukum/fixturekit/logger"
)

// Module is a unit of host code wired into an App during initialization:
// it declares observers, models, backends and index processes.
type Module interface {
	Name() string
	Init(ctx context.Context, app *App) error
}

// Options configures NewApp. Zero fields get fresh defaults.
type Options struct {
	Name      string
	DB        *gorm.DB
	Config    *Config
	Events    *Events
	Registry  *Registry
	Container di.Container
	Fs        afero.Fs
	Logger    *logger.Logger
}

// App is the application object: it owns the configuration, event
// collection, registry and the services built on them.
type App struct {
	name     string
	db       *gorm.DB
	config   *Config
	events   *Events
	registry *Registry
	cache    *Cache
	stores   *Stores
	indexer  *Indexer
	models   *Models
	log      *logger.Logger

	mu      sync.RWMutex
	fs      afero.Fs
	layout  *Layout
	area    string
	modules []string
}

// NewApp creates an application from opts.
func NewApp(opts Options) *App {
	if opts.Name == "" {
		opts.Name = "app"
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Config == nil {
		opts.Config = NewConfig()
	}
	if opts.Events == nil {
		opts.Events = NewEvents(opts.Logger)
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Container == nil {
		opts.Container = di.NewContainer()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	a := &App{
		name:     opts.Name,
		db:       opts.DB,
		config:   opts.Config,
		events:   opts.Events,
		registry: opts.Registry,
		cache:    NewCache(DefaultCacheTypes...),
		indexer:  NewIndexer(opts.Logger),
		models:   NewModels(opts.Container, opts.Registry),
		fs:       opts.Fs,
		area:     AreaGlobal,
		layout:   NewLayout(AreaFrontend),
		log:      opts.Logger.WithComponent("app"),
	}
	a.stores = NewStores(opts.DB, a.config, a.events, a.cache, opts.Logger)
	return a
}

func (a *App) Name() string        { return a.name }
func (a *App) DB() *gorm.DB        { return a.db }
func (a *App) Config() *Config     { return a.config }
func (a *App) Events() *Events     { return a.events }
func (a *App) Registry() *Registry { return a.registry }
func (a *App) Cache() *Cache       { return a.cache }
func (a *App) Stores() *Stores     { return a.stores }
func (a *App) Indexer() *Indexer   { return a.indexer }
func (a *App) Models() *Models     { return a.models }

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger { return a.log }

// FS returns the active filesystem root.
func (a *App) FS() afero.Fs {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fs
}

// SetFS replaces the active filesystem root.
func (a *App) SetFS(fs afero.Fs) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fs = fs
}

// Layout returns the current layout.
func (a *App) Layout() *Layout {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.layout
}

// SetLayout replaces the layout singleton.
func (a *App) SetLayout(l *Layout) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.layout = l
}

// Area returns the current area.
func (a *App) Area() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.area
}

// SetArea switches the current area and loads its observers.
func (a *App) SetArea(area string) {
	a.mu.Lock()
	a.area = area
	a.mu.Unlock()
	a.events.LoadArea(area)
}

// InitModules runs Init on each module whose name is enabled. An empty
// enabled list enables every module.
func (a *App) InitModules(ctx context.Context, enabled []string, modules ...Module) error {
	for _, m := range modules {
		if len(enabled) > 0 && !slices.Contains(enabled, m.Name()) {
			a.log.Debug("module disabled", logger.Fields("module", m.Name()))
			continue
		}
		if err := m.Init(ctx, a); err != nil {
			return fmt.Errorf("init module %s: %w", m.Name(), err)
		}
		a.mu.Lock()
		a.modules = append(a.modules, m.Name())
		a.mu.Unlock()
	}
	return nil
}

// Modules returns the names of initialized modules in init order.
func (a *App) Modules() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.modules...)
}

// Globals returns the four substitutable services of a.
func (a *App) Globals() Globals {
	return Globals{App: a, Config: a.config, Events: a.events, Registry: a.registry}
}
