package framework

import "sync"

// Globals bundles the process-wide services code under test reaches for.
type Globals struct {
	App      *App
	Config   *Config
	Events   *Events
	Registry *Registry
}

// Runtime holds the active Globals. Test scoping swaps them wholesale.
type Runtime struct {
	mu      sync.RWMutex
	current Globals
}

// NewRuntime creates a runtime holding g.
func NewRuntime(g Globals) *Runtime {
	return &Runtime{current: g}
}

// Current returns the active globals.
func (r *Runtime) Current() Globals {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// App returns the active application.
func (r *Runtime) App() *App { return r.Current().App }

// Replace installs g and returns the globals it displaced.
func (r *Runtime) Replace(g Globals) Globals {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.current
	r.current = g
	return prev
}
