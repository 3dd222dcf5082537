package di

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// RegistrationMode determines how a component is resolved.
type RegistrationMode int

const (
	// Factory constructs a new instance on every resolve.
	Factory RegistrationMode = iota
	// Shared constructs once and caches the instance until invalidated.
	Shared
	// Instance holds a pre-created value.
	Instance
)

func (m RegistrationMode) String() string {
	switch m {
	case Factory:
		return "factory"
	case Shared:
		return "shared"
	case Instance:
		return "instance"
	default:
		return "unknown"
	}
}

// ErrNotRegistered is returned when resolving an unknown key.
var ErrNotRegistered = errors.New("component not registered")

// Container resolves components by key. Overrides take precedence over any
// registration and are how tests inject mocks.
type Container interface {
	RegisterFactory(key string, constructor interface{}) error
	RegisterShared(key string, constructor interface{}) error
	RegisterInstance(key string, instance interface{}) error
	Resolve(key string) (interface{}, error)
	Has(key string) bool

	Override(key string, instance interface{})
	RemoveOverride(key string)
	ResetOverrides()
	Overrides() []string

	InvalidateCache(key string) error
	Registrations() []RegistrationInfo
	Close() error
}

// RegistrationInfo describes a registered component for introspection.
type RegistrationInfo struct {
	Key         string
	Mode        RegistrationMode
	Initialized bool
	Overridden  bool
}

type registration struct {
	key         string
	constructor interface{}
	mode        RegistrationMode
	instance    interface{}
	initialized bool
	mu          sync.Mutex
}

// UnifiedContainer is the default Container implementation.
type UnifiedContainer struct {
	components map[string]*registration
	overrides  map[string]interface{}
	mu         sync.RWMutex
}

// NewContainer creates an empty container.
func NewContainer() *UnifiedContainer {
	return &UnifiedContainer{
		components: make(map[string]*registration),
		overrides:  make(map[string]interface{}),
	}
}

// RegisterFactory registers a constructor called on every resolve.
func (c *UnifiedContainer) RegisterFactory(key string, constructor interface{}) error {
	return c.register(key, constructor, Factory)
}

// RegisterShared registers a constructor whose result is cached.
func (c *UnifiedContainer) RegisterShared(key string, constructor interface{}) error {
	return c.register(key, constructor, Shared)
}

// RegisterInstance registers a pre-created instance.
func (c *UnifiedContainer) RegisterInstance(key string, instance interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[key] = &registration{key: key, mode: Instance, instance: instance, initialized: true}
	return nil
}

func (c *UnifiedContainer) register(key string, constructor interface{}, mode RegistrationMode) error {
	if reflect.ValueOf(constructor).Kind() != reflect.Func {
		return fmt.Errorf("constructor for %q must be a function", key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[key] = &registration{key: key, constructor: constructor, mode: mode}
	return nil
}

// Has reports whether key is registered or overridden.
func (c *UnifiedContainer) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, overridden := c.overrides[key]
	_, registered := c.components[key]
	return overridden || registered
}

// Resolve returns the override for key if any, otherwise the registered component.
func (c *UnifiedContainer) Resolve(key string) (interface{}, error) {
	c.mu.RLock()
	if o, ok := c.overrides[key]; ok {
		c.mu.RUnlock()
		return o, nil
	}
	reg, exists := c.components[key]
	c.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}

	switch reg.mode {
	case Instance:
		return reg.instance, nil
	case Factory:
		return c.callConstructor(reg.constructor)
	default:
		reg.mu.Lock()
		defer reg.mu.Unlock()
		if reg.initialized {
			return reg.instance, nil
		}
		instance, err := c.callConstructor(reg.constructor)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %q: %w", key, err)
		}
		reg.instance = instance
		reg.initialized = true
		return instance, nil
	}
}

// Override replaces key with instance until removed.
func (c *UnifiedContainer) Override(key string, instance interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[key] = instance
}

// RemoveOverride drops the override for key.
func (c *UnifiedContainer) RemoveOverride(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.overrides, key)
}

// ResetOverrides drops every override.
func (c *UnifiedContainer) ResetOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides = make(map[string]interface{})
}

// Overrides lists the overridden keys in sorted order.
func (c *UnifiedContainer) Overrides() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.overrides))
	for k := range c.overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InvalidateCache forgets the cached instance of a shared component.
func (c *UnifiedContainer) InvalidateCache(key string) error {
	c.mu.RLock()
	reg, exists := c.components[key]
	c.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}
	if reg.mode != Shared {
		return nil
	}
	reg.mu.Lock()
	reg.instance = nil
	reg.initialized = false
	reg.mu.Unlock()
	return nil
}

// Registrations returns info about all registered components, sorted by key.
func (c *UnifiedContainer) Registrations() []RegistrationInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]RegistrationInfo, 0, len(c.components))
	for key, reg := range c.components {
		reg.mu.Lock()
		_, overridden := c.overrides[key]
		result = append(result, RegistrationInfo{
			Key:         key,
			Mode:        reg.mode,
			Initialized: reg.initialized,
			Overridden:  overridden,
		})
		reg.mu.Unlock()
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// Close closes initialized shared components and instances implementing io.Closer.
func (c *UnifiedContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, reg := range c.components {
		if !reg.initialized || reg.instance == nil {
			continue
		}
		if closer, ok := reg.instance.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", reg.key, err))
			}
		}
	}
	return errors.Join(errs...)
}

// callConstructor supports func(), func(context.Context) and func(Container),
// each returning either (instance) or (instance, error).
func (c *UnifiedContainer) callConstructor(constructor interface{}) (interface{}, error) {
	fn := reflect.ValueOf(constructor)
	fnType := fn.Type()

	var results []reflect.Value
	switch fnType.NumIn() {
	case 0:
		results = fn.Call(nil)
	case 1:
		if fnType.In(0).String() == "context.Context" {
			results = fn.Call([]reflect.Value{reflect.ValueOf(context.Background())})
		} else {
			results = fn.Call([]reflect.Value{reflect.ValueOf(Container(c))})
		}
	default:
		return nil, fmt.Errorf("constructor must take at most one argument")
	}

	switch len(results) {
	case 1:
		return results[0].Interface(), nil
	case 2:
		if err := results[1].Interface(); err != nil {
			return nil, err.(error)
		}
		return results[0].Interface(), nil
	default:
		return nil, fmt.Errorf("constructor must return either (instance) or (instance, error)")
	}
}
