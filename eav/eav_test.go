package eav_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
	dbtest "github.com/kbukum/fixturekit/database/testutil"
	"github.com/kbukum/fixturekit/eav"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	gktest "github.com/kbukum/fixturekit/testutil"
	"github.com/kbukum/fixturekit/util"
)

func newApp(t *testing.T) *framework.App {
	t.Helper()
	ctx := context.Background()
	tc := dbtest.NewComponent().WithMigrations(framework.SchemaMigrations()...)
	gktest.T(t).Setup(tc)
	app := framework.NewApp(framework.Options{DB: tc.DB()})
	require.NoError(t, app.InitModules(ctx, nil, eav.Module{}))
	require.NoError(t, app.Stores().Reinit(ctx))
	return app
}

func intValue(t *testing.T, db *gorm.DB, table string, attributeID, storeID, entityID int64) (int64, bool) {
	t.Helper()
	rows := dbtest.Rows(t, db, table, database.Row{"attribute_id": attributeID, "store_id": storeID, "entity_id": entityID})
	if len(rows) == 0 {
		return 0, false
	}
	return util.Int64(rows[0]["value"])
}

func TestLoadProductWithWebsites(t *testing.T) {
	app := newApp(t)
	db := app.DB()
	l := eav.NewLoader(app, nil)

	rows := []any{map[string]any{"entity_id": 10, "sku": "ABC", "website_ids": []any{1}}}
	ids, err := l.Load(context.Background(), framework.EntityProduct, rows, fixture.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, ids)

	products := dbtest.Rows(t, db, "catalog_product_entity", database.Row{"entity_id": 10})
	require.Len(t, products, 1)
	assert.Equal(t, "ABC", util.String(products[0]["sku"]))
	assert.Equal(t, "simple", util.String(products[0]["type_id"]))
	n, _ := util.Int64(products[0]["attribute_set_id"])
	assert.EqualValues(t, 4, n)

	dbtest.AssertRowCount(t, db, "catalog_product_website", nil, 1)
	dbtest.AssertRowCount(t, db, "catalog_product_website", database.Row{"product_id": 10, "website_id": 1}, 1)

	history := app.Indexer().History()
	assert.Contains(t, history, framework.IndexProductAttribute)
	assert.Contains(t, history, framework.IndexProductPrice)
	assert.NotContains(t, history, framework.IndexCategoryProduct)
}

func TestLoadIsIdempotent(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)
	ctx := context.Background()
	rows := []any{map[string]any{"entity_id": 10, "sku": "ABC", "name": "First", "website_ids": []any{1}}}

	_, err := l.Load(ctx, framework.EntityProduct, rows, fixture.Options{})
	require.NoError(t, err)
	rows[0].(map[string]any)["name"] = "Second"
	_, err = l.Load(ctx, framework.EntityProduct, rows, fixture.Options{})
	require.NoError(t, err)

	dbtest.AssertRowCount(t, app.DB(), "catalog_product_entity", nil, 1)
	dbtest.AssertRowCount(t, app.DB(), "catalog_product_website", nil, 1)
	names := dbtest.Rows(t, app.DB(), "catalog_product_entity_varchar", database.Row{"attribute_id": 60, "entity_id": 10})
	require.Len(t, names, 1)
	assert.Equal(t, "Second", util.String(names[0]["value"]))
}

func TestRequiredDefaultFallback(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)

	_, err := l.Load(context.Background(), framework.EntityProduct,
		[]any{map[string]any{"entity_id": 11, "sku": "DEF"}}, fixture.Options{})
	require.NoError(t, err)

	status, ok := intValue(t, app.DB(), "catalog_product_entity_int", 63, 0, 11)
	require.True(t, ok, "status falls back to its default")
	assert.EqualValues(t, 1, status)
	visibility, ok := intValue(t, app.DB(), "catalog_product_entity_int", 64, 0, 11)
	require.True(t, ok)
	assert.EqualValues(t, 4, visibility)

	// price is required but has no default, so nothing is written.
	dbtest.AssertRowCount(t, app.DB(), "catalog_product_entity_decimal", database.Row{"attribute_id": 62}, 0)
}

func TestOptionLabels(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)

	rows := []any{
		map[string]any{"entity_id": 12, "sku": "RED", "color": "blue"},
		map[string]any{"entity_id": 13, "sku": "NONE", "color": "purple"},
	}
	_, err := l.Load(context.Background(), framework.EntityProduct, rows, fixture.Options{})
	require.NoError(t, err)

	color, ok := intValue(t, app.DB(), "catalog_product_entity_int", 68, 0, 12)
	require.True(t, ok)
	assert.EqualValues(t, 4, color)

	_, ok = intValue(t, app.DB(), "catalog_product_entity_int", 68, 0, 13)
	assert.False(t, ok, "unknown labels are dropped")
}

func TestPerStoreValues(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)

	tree, err := fixture.ParseYAML([]byte(`
rows:
  - entity_id: 14
    sku: STORE
    name: Admin name
    /stores:
      default:
        name: Store name
`))
	require.NoError(t, err)
	_, err = l.Load(context.Background(), framework.EntityProduct, fixture.AsList(tree.Value("rows")), fixture.Options{})
	require.NoError(t, err)

	names := dbtest.Rows(t, app.DB(), "catalog_product_entity_varchar", database.Row{"attribute_id": 60, "entity_id": 14, "store_id": 1})
	require.Len(t, names, 1)
	assert.Equal(t, "Store name", util.String(names[0]["value"]))

	_, err = l.Load(context.Background(), framework.EntityProduct, []any{map[string]any{
		"entity_id": 15, eav.StoresKey: map[string]any{"nowhere": map[string]any{"name": "x"}},
	}}, fixture.Options{})
	assert.True(t, apperrors.IsInvalid(err))
}

func TestMissingPrimaryKey(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)

	_, err := l.Load(context.Background(), framework.EntityProduct,
		[]any{map[string]any{"entity_id": 16, "sku": "OK"}, map[string]any{"sku": "NOPK"}}, fixture.Options{})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalid(err))
	dbtest.AssertTableEmpty(t, app.DB(), "catalog_product_entity")
}

func TestDiscardRemovesEntitiesValuesAndLinks(t *testing.T) {
	app := newApp(t)
	db := app.DB()
	l := eav.NewLoader(app, nil)
	ctx := context.Background()

	rows := []any{
		map[string]any{"entity_id": 20, "sku": "KEEP", "website_ids": []any{1}},
		map[string]any{
			"entity_id": 21, "sku": "GONE", "name": "Gone", "website_ids": []any{1},
			"category_ids": []any{3}, "stock": map[string]any{"qty": 5, "is_in_stock": 1},
			"tier_price": []any{map[string]any{"qty": 2, "value": 9.5}},
		},
	}
	ids, err := l.Load(ctx, framework.EntityProduct, rows, fixture.Options{})
	require.NoError(t, err)
	assert.Contains(t, app.Indexer().History(), framework.IndexStock)
	dbtest.AssertRowCount(t, db, "cataloginventory_stock_item", database.Row{"product_id": 21, "stock_id": 1}, 1)
	dbtest.AssertRowCount(t, db, "catalog_product_entity_tier_price", database.Row{"entity_id": 21}, 1)
	dbtest.AssertRowCount(t, db, "catalog_category_product", database.Row{"product_id": 21}, 1)

	require.NoError(t, l.Discard(ctx, framework.EntityProduct, ids[1:]))
	dbtest.AssertRowCount(t, db, "catalog_product_entity", nil, 1)
	dbtest.AssertRowCount(t, db, "catalog_product_entity_varchar", database.Row{"entity_id": 21}, 0)
	dbtest.AssertRowCount(t, db, "catalog_product_entity_int", database.Row{"entity_id": 21}, 0)
	dbtest.AssertRowCount(t, db, "catalog_product_website", nil, 1)
	dbtest.AssertTableEmpty(t, db, "cataloginventory_stock_item")
	dbtest.AssertTableEmpty(t, db, "catalog_product_entity_tier_price")
	dbtest.AssertTableEmpty(t, db, "catalog_category_product")
}

func TestConfigurableAndBundleRelations(t *testing.T) {
	app := newApp(t)
	db := app.DB()
	l := eav.NewLoader(app, nil)
	ctx := context.Background()

	rows := []any{
		map[string]any{"entity_id": 30, "sku": "CHILD-A"},
		map[string]any{"entity_id": 31, "sku": "CHILD-B"},
		map[string]any{
			"entity_id": 32, "sku": "CONF", "type_id": "configurable",
			"configurable_attributes": []any{"color"}, "configurable_children": []any{30, 31},
		},
		map[string]any{
			"entity_id": 33, "sku": "BUNDLE", "type_id": "bundle",
			"bundle_options": []any{map[string]any{
				"option_id": 1, "required": 1,
				"selections": []any{map[string]any{"product_id": 30}, map[string]any{"product_id": 31, "is_default": 1}},
			}},
		},
	}
	_, err := l.Load(ctx, framework.EntityProduct, rows, fixture.Options{})
	require.NoError(t, err)

	dbtest.AssertRowCount(t, db, "catalog_product_super_attribute", database.Row{"product_id": 32, "attribute_id": 68}, 1)
	dbtest.AssertRowCount(t, db, "catalog_product_super_link", database.Row{"parent_id": 32}, 2)
	dbtest.AssertRowCount(t, db, "catalog_product_relation", database.Row{"parent_id": 32}, 2)
	dbtest.AssertRowCount(t, db, "catalog_product_bundle_option", database.Row{"parent_id": 33}, 1)
	dbtest.AssertRowCount(t, db, "catalog_product_bundle_selection", database.Row{"parent_product_id": 33}, 2)
	dbtest.AssertRowCount(t, db, "catalog_product_relation", database.Row{"parent_id": 33}, 2)

	bundle := dbtest.Rows(t, db, "catalog_product_entity", database.Row{"entity_id": 33})
	require.Len(t, bundle, 1)
	hasOptions, _ := util.Int64(bundle[0]["has_options"])
	assert.EqualValues(t, 1, hasOptions)

	_, err = l.Load(ctx, framework.EntityProduct, []any{map[string]any{
		"entity_id": 34, "bundle_options": []any{map[string]any{"required": 1}},
	}}, fixture.Options{})
	assert.True(t, apperrors.IsInvalid(err), "bundle options need an option_id")
}

func TestCategoryPathAndLevel(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)

	rows := []any{
		map[string]any{"entity_id": 2, "name": "Root"},
		map[string]any{"entity_id": 3, "parent_id": 2, "name": "Shoes"},
		map[string]any{"entity_id": 4, "parent_id": 3, "name": "Boots"},
	}
	_, err := l.Load(context.Background(), framework.EntityCategory, rows, fixture.Options{})
	require.NoError(t, err)

	got := map[int64]string{}
	levels := map[int64]int64{}
	for _, r := range dbtest.Rows(t, app.DB(), "catalog_category_entity", nil) {
		id, _ := util.Int64(r["entity_id"])
		got[id] = util.String(r["path"])
		levels[id], _ = util.Int64(r["level"])
	}
	assert.Equal(t, map[int64]string{2: "2", 3: "2/3", 4: "2/3/4"}, got)
	assert.EqualValues(t, 2, levels[4])

	// Parents already in the database are looked up there.
	_, err = l.Load(context.Background(), framework.EntityCategory,
		[]any{map[string]any{"entity_id": 5, "parent_id": 4}}, fixture.Options{})
	require.NoError(t, err)
	rows5 := dbtest.Rows(t, app.DB(), "catalog_category_entity", database.Row{"entity_id": 5})
	require.Len(t, rows5, 1)
	assert.Equal(t, "2/3/4/5", util.String(rows5[0]["path"]))

	active, ok := intValue(t, app.DB(), "catalog_category_entity_int", 31, 0, 3)
	require.True(t, ok)
	assert.EqualValues(t, 1, active)
}

func TestCustomerUsesAttributeSetZero(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)

	_, err := l.Load(context.Background(), framework.EntityCustomer, []any{map[string]any{
		"entity_id": 1, "email": "jane@example.com", "firstname": "Jane", "gender": "Female",
	}}, fixture.Options{})
	require.NoError(t, err)

	rows := dbtest.Rows(t, app.DB(), "customer_entity", database.Row{"entity_id": 1})
	require.Len(t, rows, 1)
	set, _ := util.Int64(rows[0]["attribute_set_id"])
	assert.EqualValues(t, 0, set)
	assert.Equal(t, "jane@example.com", util.String(rows[0]["email"]))

	gender, ok := intValue(t, app.DB(), "customer_entity_int", 4, 0, 1)
	require.True(t, ok)
	assert.EqualValues(t, 2, gender)
	assert.Equal(t, []string{framework.IndexCustomerGrid}, app.Indexer().History())
}

func TestDoNotIndex(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)
	ctx := context.Background()
	row := []any{map[string]any{"entity_id": 40, "sku": "NOIDX", "category_ids": []any{3}}}

	_, err := l.Load(ctx, framework.EntityProduct, row, fixture.Options{DoNotIndexAll: true})
	require.NoError(t, err)
	assert.Empty(t, app.Indexer().History())

	_, err = l.Load(ctx, framework.EntityProduct, row, fixture.Options{DoNotIndex: []string{framework.IndexCategoryProduct}})
	require.NoError(t, err)
	assert.NotContains(t, app.Indexer().History(), framework.IndexCategoryProduct)
	assert.Contains(t, app.Indexer().History(), framework.IndexSearch)
}

func TestIndexCodesDoNotLeakAcrossLoads(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)
	ctx := context.Background()

	_, err := l.Load(ctx, framework.EntityProduct,
		[]any{map[string]any{"entity_id": 41, "stock": map[string]any{"qty": 1}}}, fixture.Options{})
	require.NoError(t, err)
	app.Indexer().ResetHistory()

	_, err = l.Load(ctx, framework.EntityProduct, []any{map[string]any{"entity_id": 42}}, fixture.Options{})
	require.NoError(t, err)
	assert.NotContains(t, app.Indexer().History(), framework.IndexStock)
}

func TestSetupAddAndRemoveAttribute(t *testing.T) {
	app := newApp(t)
	db := app.DB()
	ctx := context.Background()

	meta, err := eav.MetadataFor(app)
	require.NoError(t, err)
	typ, err := meta.EntityType(framework.EntityProduct)
	require.NoError(t, err)
	setup, err := eav.SetupFor(app, typ)
	require.NoError(t, err)

	var id int64
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = setup.AddAttribute(ctx, tx, typ, "fabric", map[string]any{
			eav.DefLabel:  "Fabric",
			eav.DefOption: map[string]any{"values": []any{"Cotton", "Wool"}},
		})
		return err
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(70))
	dbtest.AssertRowCount(t, db, "eav_entity_attribute", database.Row{"attribute_id": id, "attribute_set_id": 4}, 1)

	// Metadata is memoized until reset.
	_, ok := meta.Attribute(typ.ID, "fabric")
	assert.False(t, ok)
	eav.ResetMetadata(app)
	fresh, err := eav.MetadataFor(app)
	require.NoError(t, err)
	fabric, ok := fresh.Attribute(typ.ID, "fabric")
	require.True(t, ok)
	assert.Equal(t, "int", fabric.BackendType)
	woolID, ok := fabric.OptionID("WOOL")
	require.True(t, ok)

	l := eav.NewLoader(app, nil)
	_, err = l.Load(ctx, framework.EntityProduct, []any{map[string]any{"entity_id": 50, "fabric": "wool"}}, fixture.Options{})
	require.NoError(t, err)
	v, ok := intValue(t, db, "catalog_product_entity_int", id, 0, 50)
	require.True(t, ok)
	assert.Equal(t, woolID, v)

	err = db.Transaction(func(tx *gorm.DB) error {
		return setup.RemoveAttribute(ctx, tx, typ, "fabric")
	})
	require.NoError(t, err)
	dbtest.AssertRowCount(t, db, "eav_attribute", database.Row{"attribute_code": "fabric"}, 0)
	dbtest.AssertRowCount(t, db, "eav_entity_attribute", database.Row{"attribute_id": id}, 0)
	dbtest.AssertRowCount(t, db, "eav_attribute_option", database.Row{"attribute_id": id}, 0)
	dbtest.AssertRowCount(t, db, "catalog_product_entity_int", database.Row{"attribute_id": id}, 0)
}

func TestUnknownEntityType(t *testing.T) {
	app := newApp(t)
	l := eav.NewLoader(app, nil)
	_, err := l.Load(context.Background(), "sales_order", []any{map[string]any{"entity_id": 1}}, fixture.Options{})
	assert.True(t, apperrors.IsNotFound(err))
}
