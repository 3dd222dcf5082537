package framework_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/fixturekit/database"
	dbtest "github.com/kbukum/fixturekit/database/testutil"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/framework"
	gktest "github.com/kbukum/fixturekit/testutil"
	"github.com/kbukum/fixturekit/util"
)

func newDBApp(t *testing.T) *framework.App {
	t.Helper()
	tc := dbtest.NewComponent().WithMigrations(framework.SchemaMigrations()...)
	gktest.T(t).Setup(tc)
	return framework.NewApp(framework.Options{DB: tc.DB()})
}

func TestSchemaBaseline(t *testing.T) {
	app := newDBApp(t)
	db := app.DB()

	n, err := database.Count(db, "eav_entity_type", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	n, err = database.Count(db, "eav_attribute_option_value", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	for _, table := range []string{
		"catalog_product_entity_varchar", "catalog_category_entity_int",
		"customer_entity_datetime", "customer_address_entity_text",
	} {
		assert.True(t, database.HasTable(db, table), table)
	}
	pks, err := database.PrimaryKeys(db, "catalog_product_entity_decimal")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"attribute_id", "store_id", "entity_id"}, pks)
}

func TestStoresReinitAndLookup(t *testing.T) {
	app := newDBApp(t)
	stores := app.Stores()

	_, ok := stores.Store("default")
	assert.False(t, ok, "lists are loaded lazily by Reinit")

	require.NoError(t, stores.Reinit(context.Background()))
	st, ok := stores.Store("default")
	require.True(t, ok)
	assert.EqualValues(t, 1, st.ID)
	st, ok = stores.Store("0")
	require.True(t, ok)
	assert.Equal(t, "admin", st.Code)

	assert.Len(t, stores.Stores(false), 1)
	assert.Len(t, stores.Stores(true), 2)
	assert.Len(t, stores.Websites(false), 1)

	def, ok := stores.DefaultStore()
	require.True(t, ok)
	assert.Equal(t, "default", def.Code)

	w, ok := stores.Website("base")
	require.True(t, ok)
	g, ok := stores.Group(w.DefaultGroupID)
	require.True(t, ok)
	assert.Equal(t, "Main Website Store", g.Name)
}

func TestStoresConfigFallbackAndCache(t *testing.T) {
	app := newDBApp(t)
	ctx := context.Background()
	require.NoError(t, app.Stores().Reinit(ctx))
	cfg := app.Config()
	stores := app.Stores()

	cfg.SetNode("default/general/locale/code", "en_US")
	v, ok := stores.Config(1, "general/locale/code")
	assert.True(t, ok)
	assert.Equal(t, "en_US", v)

	cfg.SetNode("websites/base/general/locale/code", "de_DE")
	v, _ = stores.Config(1, "general/locale/code")
	assert.Equal(t, "en_US", v, "memoized until reset")

	stores.ResetConfigCache()
	v, _ = stores.Config(1, "general/locale/code")
	assert.Equal(t, "de_DE", v)

	cfg.SetNode("stores/default/general/locale/code", "fr_FR")
	stores.ResetConfigCache()
	v, _ = stores.Config(1, "general/locale/code")
	assert.Equal(t, "fr_FR", v)

	_, ok = stores.Config(1, "missing/path")
	assert.False(t, ok)
}

func TestStoresSaveLoadDelete(t *testing.T) {
	app := newDBApp(t)
	ctx := context.Background()
	db := app.DB()
	app.Events().LoadArea(framework.AreaGlobal)

	row := database.Row{"store_id": 5, "code": "fr", "website_id": 1, "group_id": 1, "name": "French", "is_active": 1}
	require.NoError(t, app.Stores().Save(ctx, db, framework.ScopeStore, row))
	assert.Equal(t, 1, app.Events().DispatchedCount("store_save_after"))

	err := app.Stores().Save(ctx, db, framework.ScopeStore, row)
	require.Error(t, err)
	assert.True(t, database.IsDuplicateError(err) || apperrors.CodeOf(err) == apperrors.ErrCodeDatabaseError)

	loaded, err := app.Stores().Load(ctx, db, framework.ScopeStore, 5)
	require.NoError(t, err)
	assert.Equal(t, "fr", util.String(loaded["code"]))

	require.NoError(t, app.Stores().Delete(ctx, db, framework.ScopeStore, 5))
	assert.Equal(t, 1, app.Events().DispatchedCount("store_delete_after"))
	_, err = app.Stores().Load(ctx, db, framework.ScopeStore, 5)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStoresLoadConfigData(t *testing.T) {
	app := newDBApp(t)
	ctx := context.Background()
	require.NoError(t, app.Stores().Reinit(ctx))
	require.NoError(t, database.Insert(app.DB(), "core_config_data", []database.Row{
		{"scope": "default", "scope_id": 0, "path": "web/secure/base_url", "value": "https://a.test/"},
		{"scope": "stores", "scope_id": 1, "path": "web/secure/base_url", "value": "https://b.test/"},
		{"scope": "stores", "scope_id": 42, "path": "web/secure/base_url", "value": "ignored"},
	}))
	require.NoError(t, app.Stores().LoadConfigData(ctx))

	v, _ := app.Config().GetNode("default/web/secure/base_url")
	assert.Equal(t, "https://a.test/", v)
	v, _ = app.Stores().Config(1, "web/secure/base_url")
	assert.Equal(t, "https://b.test/", v)
}

func TestParseScopeKind(t *testing.T) {
	k, err := framework.ParseScopeKind("group")
	require.NoError(t, err)
	assert.Equal(t, "core_store_group", k.Table())
	assert.Equal(t, "group_id", k.PrimaryKey())
	assert.Equal(t, "store_group", k.EventPrefix())

	_, err = framework.ParseScopeKind("region")
	assert.True(t, apperrors.IsInvalid(err))
}
