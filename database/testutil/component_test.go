package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/component"
	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/database/migration"
	gktest "github.com/kbukum/fixturekit/testutil"
)

var itemsTable = migration.Migration{
	ID: "001_items",
	Up: func(tx *gorm.DB) error {
		return tx.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)").Error
	},
}

func TestComponent_Lifecycle(t *testing.T) {
	ctx := context.Background()
	tc := NewComponent()

	assert.Equal(t, component.StatusUnhealthy, tc.Health(ctx).Status)
	require.NoError(t, tc.Start(ctx))
	assert.Equal(t, component.StatusHealthy, tc.Health(ctx).Status)
	assert.Error(t, tc.Start(ctx), "second Start should fail")
	require.NoError(t, tc.Stop(ctx))
	require.NoError(t, tc.Stop(ctx))
}

func TestComponent_IsolatedDatabases(t *testing.T) {
	a := NewComponent().WithMigrations(itemsTable)
	b := NewComponent().WithMigrations(itemsTable)
	gktest.T(t).Setup(a)
	gktest.T(t).Setup(b)

	MustInsert(t, a.DB(), "items", database.Row{"id": 1, "name": "only in a"})

	AssertRowCount(t, a.DB(), "items", nil, 1)
	AssertTableEmpty(t, b.DB(), "items")
}

func TestComponent_SnapshotRestore(t *testing.T) {
	tc := NewComponent().WithMigrations(itemsTable)
	h := gktest.T(t)
	h.Setup(tc)

	MustInsert(t, tc.DB(), "items", database.Row{"id": 1, "name": "a"})
	snap := h.Snapshot(tc)

	MustInsert(t, tc.DB(), "items", database.Row{"id": 2, "name": "b"})
	AssertRowCount(t, tc.DB(), "items", nil, 2)

	h.Restore(tc, snap)
	rows := Rows(t, tc.DB(), "items", nil)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["id"])

	h.Reset(tc)
	AssertTableEmpty(t, tc.DB(), "items")
	// migration bookkeeping survives a reset
	AssertRowCount(t, tc.DB(), "schema_migrations", nil, 1)
}

func TestComponent_RestoreRejectsForeignSnapshot(t *testing.T) {
	tc := NewComponent()
	gktest.T(t).Setup(tc)
	assert.Error(t, tc.Restore(context.Background(), "nope"))
}
