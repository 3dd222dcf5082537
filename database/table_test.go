package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/database/migration"
	dbtest "github.com/kbukum/fixturekit/database/testutil"
	gktest "github.com/kbukum/fixturekit/testutil"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	tc := dbtest.NewComponent().WithMigrations(migration.Migration{
		ID: "001_values",
		Up: func(tx *gorm.DB) error {
			return tx.Exec(`CREATE TABLE value_int (
				attribute_id INTEGER NOT NULL,
				store_id INTEGER NOT NULL,
				entity_id INTEGER NOT NULL,
				value INTEGER,
				PRIMARY KEY (attribute_id, store_id, entity_id))`).Error
		},
	})
	gktest.T(t).Setup(tc)
	return tc.Database()
}

func TestColumnsAndPrimaryKeys(t *testing.T) {
	db := setupDB(t)

	cols, err := database.Columns(db.GormDB, "value_int")
	require.NoError(t, err)
	assert.Len(t, cols, 4)

	keys, err := database.PrimaryKeys(db.GormDB, "value_int")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"attribute_id", "store_id", "entity_id"}, keys)

	_, err = database.Columns(db.GormDB, "missing_table")
	assert.Error(t, err)
}

func TestUpsertIsIdempotent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	conflict := []string{"attribute_id", "store_id", "entity_id"}
	row := database.Row{"attribute_id": 1, "store_id": 0, "entity_id": 10, "value": 5}

	for i := 0; i < 2; i++ {
		require.NoError(t, db.WithTransaction(ctx, func(tx *gorm.DB) error {
			return database.Upsert(tx, "value_int", conflict, []database.Row{row})
		}))
	}
	dbtest.AssertRowCount(t, db.GormDB, "value_int", nil, 1)

	row["value"] = 7
	require.NoError(t, database.Upsert(db.GormDB, "value_int", conflict, []database.Row{row}))
	rows := dbtest.Rows(t, db.GormDB, "value_int", database.Row{"entity_id": 10})
	require.Len(t, rows, 1)
	assert.EqualValues(t, 7, rows[0]["value"])
}

func TestInsertDuplicateIsDetected(t *testing.T) {
	db := setupDB(t)
	row := database.Row{"attribute_id": 1, "store_id": 0, "entity_id": 10, "value": 5}
	require.NoError(t, database.Insert(db.GormDB, "value_int", []database.Row{row}))

	err := database.Insert(db.GormDB, "value_int", []database.Row{row})
	require.Error(t, err)
	assert.True(t, database.IsDuplicateError(err))
}

func TestDeleteInAndTruncate(t *testing.T) {
	db := setupDB(t)
	var rows []database.Row
	for id := 1; id <= 3; id++ {
		rows = append(rows, database.Row{"attribute_id": 1, "store_id": 0, "entity_id": id})
	}
	require.NoError(t, database.Insert(db.GormDB, "value_int", rows))

	require.NoError(t, database.DeleteIn(db.GormDB, "value_int", "entity_id", []any{1, 2}))
	dbtest.AssertRowCount(t, db.GormDB, "value_int", nil, 1)
	require.NoError(t, database.DeleteIn(db.GormDB, "value_int", "entity_id", nil))

	require.NoError(t, database.Truncate(db.GormDB, "value_int"))
	dbtest.AssertTableEmpty(t, db.GormDB, "value_int")
}

func TestTransactionRollsBackBatch(t *testing.T) {
	db := setupDB(t)
	row := database.Row{"attribute_id": 1, "store_id": 0, "entity_id": 1}

	err := db.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		if err := database.Insert(tx, "value_int", []database.Row{row}); err != nil {
			return err
		}
		return database.Insert(tx, "value_int", []database.Row{row})
	})
	require.Error(t, err)
	dbtest.AssertTableEmpty(t, db.GormDB, "value_int")
}

func TestFilterColumns(t *testing.T) {
	out := database.FilterColumns(database.Row{"a": 1, "b": 2}, map[string]bool{"a": true})
	assert.Equal(t, database.Row{"a": 1}, out)
}
