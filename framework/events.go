package framework

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/fixturekit/logger"
)

// Well-known event areas.
const (
	AreaGlobal    = "global"
	AreaFrontend  = "frontend"
	AreaAdminhtml = "adminhtml"
	AreaTest      = "test"
)

// Event is a dispatched event with its payload.
type Event struct {
	Name string
	Data map[string]any
}

// ObserverFunc handles a dispatched event.
type ObserverFunc func(ctx context.Context, e Event) error

// Observer subscribes a named handler to an event.
type Observer struct {
	Name   string
	Event  string
	Handle ObserverFunc
}

// Events is the event collection: observers are declared per area and only
// fire once their area has been loaded.
type Events struct {
	mu         sync.RWMutex
	observers  map[string][]Observer
	loaded     map[string]bool
	dispatched map[string]int
	disabled   bool
	log        *logger.Logger
}

// NewEvents creates an empty event collection.
func NewEvents(log *logger.Logger) *Events {
	if log == nil {
		log = logger.Nop()
	}
	return &Events{
		observers:  map[string][]Observer{},
		loaded:     map[string]bool{},
		dispatched: map[string]int{},
		log:        log.WithComponent("events"),
	}
}

// AddObserver declares an observer in area.
func (e *Events) AddObserver(area string, o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers[area] = append(e.observers[area], o)
}

// LoadArea activates the observers declared for area.
func (e *Events) LoadArea(area string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded[area] = true
}

// IsAreaLoaded reports whether area has been loaded.
func (e *Events) IsAreaLoaded(area string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded[area]
}

// LoadedAreas returns the loaded areas, sorted.
func (e *Events) LoadedAreas() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	areas := make([]string, 0, len(e.loaded))
	for a := range e.loaded {
		areas = append(areas, a)
	}
	sort.Strings(areas)
	return areas
}

// Disable suppresses dispatching until Enable is called.
func (e *Events) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disabled = true
}

// Enable resumes dispatching.
func (e *Events) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disabled = false
}

// Enabled reports whether dispatching is active.
func (e *Events) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.disabled
}

// Dispatch runs every observer of name in the loaded areas and counts the
// dispatch. While disabled, nothing runs and nothing is counted.
func (e *Events) Dispatch(ctx context.Context, name string, data map[string]any) error {
	e.mu.Lock()
	if e.disabled {
		e.mu.Unlock()
		return nil
	}
	e.dispatched[name]++
	var targets []Observer
	areas := make([]string, 0, len(e.loaded))
	for a := range e.loaded {
		areas = append(areas, a)
	}
	sort.Strings(areas)
	for _, a := range areas {
		for _, o := range e.observers[a] {
			if o.Event == name {
				targets = append(targets, o)
			}
		}
	}
	e.mu.Unlock()

	ev := Event{Name: name, Data: data}
	for _, o := range targets {
		if err := o.Handle(ctx, ev); err != nil {
			e.log.Error("observer failed", logger.Fields("event", name, "observer", o.Name, logger.FieldError, err.Error()))
			return fmt.Errorf("observer %s for %s: %w", o.Name, name, err)
		}
	}
	return nil
}

// DispatchedCount returns how many times name was dispatched since the last
// reset.
func (e *Events) DispatchedCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dispatched[name]
}

// ResetDispatched clears the dispatch counters.
func (e *Events) ResetDispatched() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dispatched = map[string]int{}
}
