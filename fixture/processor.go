package fixture

import (
	"context"

	"github.com/spf13/afero"
)

// Processor applies and discards one kind of fixture data. Processors keep
// no state of their own: everything Discard needs is recorded in the
// fixture's storage by Apply.
type Processor interface {
	// Initialize runs before every Apply of the processor's kind.
	Initialize(ctx context.Context, f Fixture) error
	Apply(ctx context.Context, data any, kind string, f Fixture) error
	Discard(ctx context.Context, data any, kind string, f Fixture) error
}

// Fixture is the view of the engine handed to processors.
type Fixture interface {
	Scope() Scope
	IsScopeLocal() bool
	IsScopeShared() bool
	IsScopeDefault() bool

	// StorageData reads key in the current scope.
	StorageData(key string) any
	// ScopeStorageData reads key in another scope, typically shared.
	ScopeStorageData(scope Scope, key string) any
	// SetStorageData writes key in the current scope; nil clears it.
	SetStorageData(key string, value any)

	Options() Options

	PushFS(fs afero.Fs)
	PopFS() afero.Fs
	FS() afero.Fs
}

// Options are the per-test processing switches collected from annotations.
type Options struct {
	DoNotIndexAll bool
	DoNotIndex    []string
}

// SkipsIndex reports whether code must not be reindexed.
func (o Options) SkipsIndex(code string) bool {
	if o.DoNotIndexAll {
		return true
	}
	for _, c := range o.DoNotIndex {
		if c == code {
			return true
		}
	}
	return false
}

// with merges the switches of annotation a, which may be nil.
func (o Options) with(a *Annotation) Options {
	if a == nil {
		return o
	}
	return o.merge(Options{DoNotIndexAll: a.DoNotIndexAll, DoNotIndex: a.DoNotIndex})
}

// merge combines two option sets; switches accumulate.
func (o Options) merge(other Options) Options {
	return Options{
		DoNotIndexAll: o.DoNotIndexAll || other.DoNotIndexAll,
		DoNotIndex:    append(append([]string(nil), o.DoNotIndex...), other.DoNotIndex...),
	}
}
