package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Manager starts a group of test components in order and stops them in
// reverse, e.g. the test database before the environment that uses it.
type Manager struct {
	ctx        context.Context
	mu         sync.RWMutex
	components []TestComponent
	started    int
}

// NewManager creates an empty manager.
func NewManager(ctx context.Context) *Manager {
	return &Manager{ctx: ctx}
}

// Add appends c to the start order.
func (m *Manager) Add(c TestComponent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, c)
}

// Components returns the components in start order.
func (m *Manager) Components() []TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TestComponent(nil), m.components...)
}

// Get returns the component named name, or nil.
func (m *Manager) Get(name string) TestComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// StartAll starts every component not yet started. On failure the
// components this call started are stopped again.
func (m *Manager) StartAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.started
	for i := from; i < len(m.components); i++ {
		c := m.components[i]
		if err := c.Start(m.ctx); err != nil {
			startErr := fmt.Errorf("start %s: %w", c.Name(), err)
			return errors.Join(startErr, m.stopRange(from, i))
		}
		m.started = i + 1
	}
	return nil
}

// StopAll stops the started components in reverse order. Every component
// is stopped even when one fails; the failures are joined.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopRange(0, m.started)
}

func (m *Manager) stopRange(from, to int) error {
	var errs []error
	for i := to - 1; i >= from; i-- {
		c := m.components[i]
		if err := c.Stop(m.ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name(), err))
		}
	}
	m.started = from
	return errors.Join(errs...)
}

// ResetAll resets the components in start order and stops at the first
// failure.
func (m *Manager) ResetAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.components[:m.started] {
		if err := c.Reset(m.ctx); err != nil {
			return fmt.Errorf("reset %s: %w", c.Name(), err)
		}
	}
	return nil
}

// Cleanup is StopAll with a signature for t.Cleanup wrappers and defer.
func (m *Manager) Cleanup() error {
	return m.StopAll()
}
