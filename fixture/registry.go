package fixture

import (
	"fmt"
	"sync"

	"github.com/kbukum/fixturekit/logger"
)

// Warning reports a processor kind that was skipped.
type Warning struct {
	Kind   string
	Reason string
}

func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.Kind, w.Reason) }

// Registry is the ordered list of (kind, processor) pairs. Kinds without a
// usable processor are reported on the warning channel and skipped, never
// fatal.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	processors map[string]Processor
	warnings   []Warning
	log        *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{processors: map[string]Processor{}, log: log.WithComponent("fixture.registry")}
}

// Register adds p under kind. Re-registering a kind replaces the processor
// and keeps its position.
func (r *Registry) Register(kind string, p Processor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.processors[kind]; !ok {
		r.order = append(r.order, kind)
	}
	r.processors[kind] = p
	return r
}

// RegisterAny registers v when it implements Processor and warns otherwise.
func (r *Registry) RegisterAny(kind string, v any) bool {
	p, ok := v.(Processor)
	if !ok || p == nil {
		r.Warn(kind, fmt.Sprintf("%T does not implement fixture.Processor", v))
		return false
	}
	r.Register(kind, p)
	return true
}

// Get returns the processor for kind.
func (r *Registry) Get(kind string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[kind]
	return p, ok
}

// Kinds returns the registered kinds in order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Select returns a registry holding only kinds, in that order. Kinds with
// no registered processor are warned about.
func (r *Registry) Select(kinds []string) *Registry {
	out := NewRegistry(nil)
	out.log = r.log
	for _, k := range kinds {
		p, ok := r.Get(k)
		if !ok {
			out.Warn(k, "no processor registered")
			continue
		}
		out.Register(k, p)
	}
	return out
}

// Warn records a skipped kind and logs it.
func (r *Registry) Warn(kind, reason string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, Warning{Kind: kind, Reason: reason})
	r.mu.Unlock()
	r.log.Warn("fixture processor skipped", logger.Fields(logger.FieldProcessor, kind, "reason", reason))
}

// Warnings returns the recorded warnings.
func (r *Registry) Warnings() []Warning {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Warning(nil), r.warnings...)
}
