package framework

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/fixturekit/di"
	apperrors "github.com/kbukum/fixturekit/errors"
)

// MockKind selects which resolution path a mock replaces.
type MockKind string

const (
	MockModel             MockKind = "model"
	MockResourceModel     MockKind = "resource_model"
	MockSingleton         MockKind = "singleton"
	MockResourceSingleton MockKind = "resource_singleton"
	MockHelper            MockKind = "helper"
)

// ConfigValue is a config write passing through a backend model.
type ConfigValue struct {
	Path  string
	Value string
}

// BackendModel pre-processes config values saved at a declared path.
type BackendModel interface {
	BeforeSave(ctx context.Context, v *ConfigValue) error
}

// Models resolves model, resource model, helper and backend aliases through
// a DI container. Singletons and helpers are memoized in the Registry so that
// clearing a registry key forces fresh resolution.
type Models struct {
	container di.Container
	registry  *Registry

	mu       sync.Mutex
	restores []registryRestore
}

type registryRestore struct {
	key     string
	value   any
	present bool
}

// NewModels creates a resolver over container, memoizing into registry.
func NewModels(container di.Container, registry *Registry) *Models {
	return &Models{container: container, registry: registry}
}

// Container returns the underlying DI container.
func (m *Models) Container() di.Container { return m.container }

func modelKey(alias string) string    { return "model/" + alias }
func resourceKey(alias string) string { return "resource_model/" + alias }
func helperKey(alias string) string   { return "helper/" + alias }
func backendKey(alias string) string  { return "backend/" + alias }

// RegisterModel registers a model factory under alias.
func (m *Models) RegisterModel(alias string, constructor any) error {
	return m.container.RegisterFactory(modelKey(alias), constructor)
}

// RegisterResourceModel registers a resource model factory under alias.
func (m *Models) RegisterResourceModel(alias string, constructor any) error {
	return m.container.RegisterFactory(resourceKey(alias), constructor)
}

// RegisterHelper registers a helper factory under alias.
func (m *Models) RegisterHelper(alias string, constructor any) error {
	return m.container.RegisterFactory(helperKey(alias), constructor)
}

// RegisterBackend registers a config backend model under alias.
func (m *Models) RegisterBackend(alias string, backend BackendModel) error {
	return m.container.RegisterInstance(backendKey(alias), backend)
}

// Model returns a new model instance for alias.
func (m *Models) Model(alias string) (any, error) {
	return m.resolve(modelKey(alias), "model", alias)
}

// ResourceModel returns a new resource model instance for alias.
func (m *Models) ResourceModel(alias string) (any, error) {
	return m.resolve(resourceKey(alias), "resource model", alias)
}

// Singleton returns the memoized model for alias.
func (m *Models) Singleton(alias string) (any, error) {
	return m.memoized(SingletonPrefix+alias, func() (any, error) { return m.Model(alias) })
}

// ResourceSingleton returns the memoized resource model for alias.
func (m *Models) ResourceSingleton(alias string) (any, error) {
	return m.memoized(ResourceSingletonPrefix+alias, func() (any, error) { return m.ResourceModel(alias) })
}

// Helper returns the memoized helper for alias.
func (m *Models) Helper(alias string) (any, error) {
	return m.memoized(HelperPrefix+alias, func() (any, error) {
		return m.resolve(helperKey(alias), "helper", alias)
	})
}

// Backend returns the backend model registered under alias.
func (m *Models) Backend(alias string) (BackendModel, error) {
	key := backendKey(alias)
	if !m.container.Has(key) {
		return nil, apperrors.NotFound("backend model", alias)
	}
	b, err := di.Resolve[BackendModel](m.container, key)
	if err != nil {
		return nil, apperrors.Configuration(fmt.Sprintf("backend model %q is unusable", alias)).WithCause(err)
	}
	return b, nil
}

func (m *Models) resolve(key, kind, alias string) (any, error) {
	if !m.container.Has(key) {
		return nil, apperrors.NotFound(kind, alias)
	}
	v, err := m.container.Resolve(key)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %q: %w", kind, alias, err)
	}
	return v, nil
}

func (m *Models) memoized(key string, build func() (any, error)) (any, error) {
	if v := m.registry.Get(key); v != nil {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return nil, err
	}
	m.registry.Set(key, v)
	return v, nil
}

// ReplaceByMock makes alias resolve to mock until ResetMocks. Models and
// resource models are overridden in the container; memoized kinds are
// replaced in the registry and their previous value is remembered.
func (m *Models) ReplaceByMock(kind MockKind, alias string, mock any) error {
	switch kind {
	case MockModel:
		m.container.Override(modelKey(alias), mock)
	case MockResourceModel:
		m.container.Override(resourceKey(alias), mock)
	case MockSingleton:
		m.replaceInRegistry(SingletonPrefix+alias, mock)
	case MockResourceSingleton:
		m.replaceInRegistry(ResourceSingletonPrefix+alias, mock)
	case MockHelper:
		m.replaceInRegistry(HelperPrefix+alias, mock)
	default:
		return apperrors.InvalidInput("kind", fmt.Sprintf("unknown mock kind %q", kind))
	}
	return nil
}

func (m *Models) replaceInRegistry(key string, mock any) {
	prev, present := m.registry.Lookup(key)
	m.mu.Lock()
	m.restores = append(m.restores, registryRestore{key: key, value: prev, present: present})
	m.mu.Unlock()
	m.registry.Set(key, mock)
}

// ResetMocks drops every mock installed by ReplaceByMock and restores the
// registry entries they displaced, newest first.
func (m *Models) ResetMocks() {
	m.container.ResetOverrides()
	m.mu.Lock()
	restores := m.restores
	m.restores = nil
	m.mu.Unlock()
	for i := len(restores) - 1; i >= 0; i-- {
		r := restores[i]
		if r.present {
			m.registry.Set(r.key, r.value)
		} else {
			m.registry.Unregister(r.key)
		}
	}
}

// MockCount returns how many mocks are currently installed.
func (m *Models) MockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.restores) + len(m.container.Overrides())
}
