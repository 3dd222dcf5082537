package testutil

import (
	"context"

	"github.com/kbukum/fixturekit/component"
)

// TestComponent is a component tests can also rewind between cases. The
// in-memory test database and testapp.Environment implement it.
type TestComponent interface {
	component.Component

	// Reset returns the component to the state it had right after Start.
	Reset(ctx context.Context) error

	// Snapshot captures the current state for a later Restore.
	Snapshot(ctx context.Context) (interface{}, error)

	// Restore rewinds to a value returned by Snapshot. Snapshots of another
	// component are rejected.
	Restore(ctx context.Context, snapshot interface{}) error
}
