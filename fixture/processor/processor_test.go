package processor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/fixturekit/config"
	"github.com/kbukum/fixturekit/database"
	dbtest "github.com/kbukum/fixturekit/database/testutil"
	"github.com/kbukum/fixturekit/eav"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/fixture/processor"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/testapp"
	gktest "github.com/kbukum/fixturekit/testutil"
	"github.com/kbukum/fixturekit/util"
)

type harness struct {
	t      *testing.T
	ctx    context.Context
	env    *testapp.Environment
	engine *fixture.Engine
	app    *framework.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tc := dbtest.NewComponent().WithMigrations(framework.SchemaMigrations()...)
	gktest.T(t).Setup(tc)

	s := &config.Settings{Name: "processor-test"}
	s.ApplyDefaults()
	env := testapp.New(testapp.Options{Settings: s, DB: tc.DB()})
	gktest.T(t).Setup(env)
	return &harness{t: t, ctx: context.Background(), env: env, engine: env.Engine(), app: env.App()}
}

func (h *harness) apply(scope fixture.Scope, yaml string) error {
	h.t.Helper()
	tree, err := fixture.ParseYAML([]byte(yaml))
	require.NoError(h.t, err)
	require.NoError(h.t, h.engine.SetScope(scope))
	h.engine.Merge(tree)
	return h.engine.Apply(h.ctx)
}

func (h *harness) discard(scope fixture.Scope) {
	h.t.Helper()
	require.NoError(h.t, h.engine.SetScope(scope))
	require.NoError(h.t, h.engine.Discard(h.ctx))
}

func (h *harness) categoryPath(id int64) (string, bool) {
	rows := dbtest.Rows(h.t, h.app.DB(), "catalog_category_entity", database.Row{"entity_id": id})
	if len(rows) == 0 {
		return "", false
	}
	return util.String(rows[0]["path"]), true
}

func TestTableApplyDiscard(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()

	require.NoError(t, h.apply(fixture.ScopeLocal, `
table:
  catalog_category_entity:
    - {entity_id: 5, path: "1/5", name: Shoes}
`))
	dbtest.AssertRowCount(t, db, "catalog_category_entity", database.Row{"entity_id": 5}, 1)

	h.discard(fixture.ScopeLocal)
	dbtest.AssertRowCount(t, db, "catalog_category_entity", database.Row{"entity_id": 5}, 0)
}

func TestTableLocalDiscardKeepsSharedRows(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()

	require.NoError(t, h.apply(fixture.ScopeShared, `
table:
  catalog_category_entity:
    - {entity_id: 5, path: Root}
`))
	require.NoError(t, h.apply(fixture.ScopeLocal, `
table:
  catalog_category_entity:
    - {entity_id: 5, path: Shoes}
    - {entity_id: 6, path: Boots}
`))
	path, _ := h.categoryPath(5)
	assert.Equal(t, "Shoes", path)
	dbtest.AssertRowCount(t, db, "catalog_category_entity", nil, 2)

	h.discard(fixture.ScopeLocal)
	path, ok := h.categoryPath(5)
	require.True(t, ok)
	assert.Equal(t, "Root", path)
	_, ok = h.categoryPath(6)
	assert.False(t, ok)

	h.discard(fixture.ScopeShared)
	dbtest.AssertTableEmpty(t, db, "catalog_category_entity")
}

func TestReapplyAfterDiscardRestoresState(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()
	fixtureYAML := `
table:
  catalog_category_entity:
    - {entity_id: 7, path: "1/7"}
eav:
  catalog_product:
    - {entity_id: 10, sku: ABC, name: Shirt, website_ids: [1]}
config:
  default/general/locale/code: de_DE
registry:
  key: [current_category]
`
	before := map[string]int64{}
	tables := []string{"catalog_category_entity", "catalog_product_entity", "catalog_product_entity_varchar", "catalog_product_website"}
	for _, table := range tables {
		before[table] = dbtest.CountRows(t, db, table, nil)
	}
	h.app.Registry().Set("current_category", "cat")

	for i := 0; i < 2; i++ {
		require.NoError(t, h.apply(fixture.ScopeLocal, fixtureYAML))
		assert.Nil(t, h.app.Registry().Get("current_category"))
		h.discard(fixture.ScopeLocal)

		for _, table := range tables {
			assert.Equal(t, before[table], dbtest.CountRows(t, db, table, nil), table)
		}
		_, ok := h.app.Config().GetNode("default/general/locale/code")
		assert.False(t, ok)
		assert.Equal(t, "cat", h.app.Registry().Get("current_category"))
	}
}

func TestEAVProductScenario(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()

	require.NoError(t, h.apply(fixture.ScopeLocal, `
eav:
  catalog_product:
    - {entity_id: 10, sku: ABC, website_ids: [1]}
`))
	dbtest.AssertRowCount(t, db, "catalog_product_entity", database.Row{"entity_id": 10}, 1)
	dbtest.AssertRowCount(t, db, "catalog_product_website", database.Row{"product_id": 10, "website_id": 1}, 1)
	assert.Contains(t, h.app.Indexer().History(), framework.IndexProductAttribute)

	h.discard(fixture.ScopeLocal)
	dbtest.AssertTableEmpty(t, db, "catalog_product_entity")
	dbtest.AssertTableEmpty(t, db, "catalog_product_website")
}

func TestEAVDoNotIndexAll(t *testing.T) {
	h := newHarness(t)
	h.engine.SetOptions(fixture.Options{DoNotIndexAll: true})

	require.NoError(t, h.apply(fixture.ScopeLocal, `
eav:
  catalog_product:
    - {entity_id: 10, sku: ABC, website_ids: [1]}
`))
	assert.Empty(t, h.app.Indexer().History())
	h.discard(fixture.ScopeLocal)
	assert.Equal(t, fixture.Options{}, h.engine.Options(), "local discard clears options")
}

func TestEAVLocalDiscardKeepsSharedEntities(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()

	require.NoError(t, h.apply(fixture.ScopeShared, `
eav:
  catalog_product:
    - {entity_id: 10, sku: SHARED}
`))
	require.NoError(t, h.apply(fixture.ScopeLocal, `
eav:
  catalog_product:
    - {entity_id: 10, sku: SHARED}
    - {entity_id: 11, sku: LOCAL}
`))
	h.discard(fixture.ScopeLocal)
	dbtest.AssertRowCount(t, db, "catalog_product_entity", database.Row{"entity_id": 10}, 1)
	dbtest.AssertRowCount(t, db, "catalog_product_entity", database.Row{"entity_id": 11}, 0)

	h.discard(fixture.ScopeShared)
	dbtest.AssertTableEmpty(t, db, "catalog_product_entity")
}

func TestEAVLocalDiscardRestoresSharedValues(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()

	require.NoError(t, h.apply(fixture.ScopeShared, `
eav:
  catalog_product:
    - {entity_id: 10, sku: SHARED, name: Root, website_ids: [1]}
`))
	require.NoError(t, h.apply(fixture.ScopeLocal, `
eav:
  catalog_product:
    - {entity_id: 10, sku: LOCAL, name: Shoes}
`))
	h.discard(fixture.ScopeLocal)

	rows := dbtest.Rows(t, db, "catalog_product_entity", database.Row{"entity_id": 10})
	require.Len(t, rows, 1)
	assert.Equal(t, "SHARED", util.String(rows[0]["sku"]))

	names := dbtest.Rows(t, db, "catalog_product_entity_varchar", database.Row{"entity_id": 10, "attribute_id": 60})
	require.Len(t, names, 1)
	assert.Equal(t, "Root", util.String(names[0]["value"]))
	dbtest.AssertRowCount(t, db, "catalog_product_website", database.Row{"product_id": 10, "website_id": 1}, 1)

	h.discard(fixture.ScopeShared)
	dbtest.AssertTableEmpty(t, db, "catalog_product_entity")
	dbtest.AssertTableEmpty(t, db, "catalog_product_entity_varchar")
}

func TestEAVFailedReindexStillDiscards(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()
	h.app.Indexer().Register(framework.IndexProductPrice, func(context.Context) error {
		return errors.New("price index locked")
	})

	err := h.apply(fixture.ScopeLocal, `
eav:
  catalog_product:
    - {entity_id: 10, sku: ABC}
`)
	require.Error(t, err)
	dbtest.AssertRowCount(t, db, "catalog_product_entity", database.Row{"entity_id": 10}, 1)

	h.discard(fixture.ScopeLocal)
	dbtest.AssertTableEmpty(t, db, "catalog_product_entity")
}

func TestAttributeFixture(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()

	require.NoError(t, h.apply(fixture.ScopeLocal, `
attribute:
  catalog_product:
    - attribute_code: fabric
      label: Fabric
      option:
        values: [Cotton, Wool]
eav:
  catalog_product:
    - {entity_id: 20, sku: WOOL, fabric: Wool}
`))
	meta, err := eav.MetadataFor(h.app)
	require.NoError(t, err)
	typ, err := meta.EntityType(framework.EntityProduct)
	require.NoError(t, err)
	fabric, ok := meta.Attribute(typ.ID, "fabric")
	require.True(t, ok)
	wool, _ := fabric.OptionID("wool")
	rows := dbtest.Rows(t, db, "catalog_product_entity_int", database.Row{"attribute_id": fabric.ID, "entity_id": 20})
	require.Len(t, rows, 1)
	v, _ := util.Int64(rows[0]["value"])
	assert.Equal(t, wool, v)

	h.discard(fixture.ScopeLocal)
	dbtest.AssertRowCount(t, db, "eav_attribute", database.Row{"attribute_code": "fabric"}, 0)
	dbtest.AssertRowCount(t, db, "catalog_product_entity_int", database.Row{"attribute_id": fabric.ID}, 0)
	meta, err = eav.MetadataFor(h.app)
	require.NoError(t, err)
	_, ok = meta.Attribute(typ.ID, "fabric")
	assert.False(t, ok, "metadata is reloaded after discard")
}

func TestAttributeLocalDiscardKeepsSharedAttributes(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()
	def := `
attribute:
  catalog_product:
    material: {label: Material}
`
	require.NoError(t, h.apply(fixture.ScopeShared, def))
	require.NoError(t, h.apply(fixture.ScopeLocal, def))
	h.discard(fixture.ScopeLocal)
	dbtest.AssertRowCount(t, db, "eav_attribute", database.Row{"attribute_code": "material"}, 1)
	h.discard(fixture.ScopeShared)
	dbtest.AssertRowCount(t, db, "eav_attribute", database.Row{"attribute_code": "material"}, 0)
}

const scopeYAML = `
scope:
  website:
    - {website_id: 2, code: usa, name: USA, default_group_id: 2}
  group:
    - {group_id: 2, website_id: 2, name: USA Store, root_category_id: 2, default_store_id: 2}
  store:
    - {store_id: 2, code: usa_en, website_id: 2, group_id: 2, name: English, is_active: 1}
`

func TestAttributeLocalRedefinitionIsReverted(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()

	require.NoError(t, h.apply(fixture.ScopeShared, `
attribute:
  catalog_product:
    material: {label: Material}
`))
	require.NoError(t, h.apply(fixture.ScopeLocal, `
attribute:
  catalog_product:
    material: {label: Local Material, type: int}
    finish: {label: Finish}
`))
	h.discard(fixture.ScopeLocal)

	rows := dbtest.Rows(t, db, "eav_attribute", database.Row{"attribute_code": "material"})
	require.Len(t, rows, 1)
	assert.Equal(t, "Material", util.String(rows[0]["frontend_label"]))
	assert.Equal(t, "varchar", util.String(rows[0]["backend_type"]))
	dbtest.AssertRowCount(t, db, "eav_attribute", database.Row{"attribute_code": "finish"}, 0)

	h.discard(fixture.ScopeShared)
	dbtest.AssertRowCount(t, db, "eav_attribute", database.Row{"attribute_code": "material"}, 0)
}

func TestScopeFixture(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()

	require.NoError(t, h.apply(fixture.ScopeLocal, scopeYAML))
	st, ok := h.app.Stores().Store("usa_en")
	require.True(t, ok, "stores are reinitialized after apply")
	assert.EqualValues(t, 2, st.WebsiteID)
	assert.Zero(t, h.app.Events().DispatchedCount("store_save_after"), "events are off while records are written")
	assert.True(t, h.app.Events().Enabled())

	h.app.Cache().Save("store_2_page", "html", framework.TagStore)
	h.discard(fixture.ScopeLocal)
	_, ok = h.app.Stores().Store("usa_en")
	assert.False(t, ok)
	dbtest.AssertRowCount(t, db, "core_website", database.Row{"website_id": 2}, 0)
	dbtest.AssertRowCount(t, db, "core_store_group", database.Row{"group_id": 2}, 0)
	_, ok = h.app.Cache().Load("store_2_page")
	assert.False(t, ok, "store cache entries are purged")
	assert.Zero(t, h.app.Events().DispatchedCount("store_delete_after"))
}

func TestScopeAdoptsLeftoverRecords(t *testing.T) {
	h := newHarness(t)
	db := h.app.DB()
	dbtest.MustInsert(t, db, "core_store", database.Row{"store_id": 3, "code": "stale", "website_id": 1, "group_id": 1, "name": "Stale"})

	require.NoError(t, h.apply(fixture.ScopeLocal, `
scope:
  store:
    - {store_id: 3, code: stale, website_id: 1, group_id: 1, name: Stale}
`))
	h.discard(fixture.ScopeLocal)
	dbtest.AssertRowCount(t, db, "core_store", database.Row{"store_id": 3}, 0)
}

func TestScopeRowsNeedPrimaryKey(t *testing.T) {
	h := newHarness(t)
	err := h.apply(fixture.ScopeLocal, `
scope:
  store:
    - {code: nokey, website_id: 1, group_id: 1}
`)
	assert.True(t, apperrors.IsInvalid(err))
}

func TestDoubleApplyIsRefused(t *testing.T) {
	h := newHarness(t)
	for _, kind := range []string{processor.KindRegistry, processor.KindScope} {
		p, ok := h.engine.Registry().Get(kind)
		require.True(t, ok)
		data, err := fixture.ParseYAML([]byte(map[string]string{
			processor.KindRegistry: "key: [current_product]\n",
			processor.KindScope:    "store:\n  - {store_id: 4, code: four, website_id: 1, group_id: 1}\n",
		}[kind]))
		require.NoError(t, err)

		require.NoError(t, p.Apply(h.ctx, data, kind, h.engine))
		err = p.Apply(h.ctx, data, kind, h.engine)
		assert.True(t, apperrors.IsConsistency(err), kind)
		require.NoError(t, p.Discard(h.ctx, data, kind, h.engine))
		require.NoError(t, p.Apply(h.ctx, data, kind, h.engine), "apply works again after discard")
		require.NoError(t, p.Discard(h.ctx, data, kind, h.engine))
	}
}

func TestRegistryRestoresExactReference(t *testing.T) {
	h := newHarness(t)
	meta, err := eav.MetadataFor(h.app)
	require.NoError(t, err)
	key := framework.SingletonPrefix + eav.ConfigAlias

	require.NoError(t, h.apply(fixture.ScopeLocal, `
registry:
  singleton: [eav/config]
  helper: [catalog]
`))
	assert.True(t, h.app.Registry().Has(key))
	assert.Nil(t, h.app.Registry().Get(key))

	h.discard(fixture.ScopeLocal)
	assert.Same(t, meta, h.app.Registry().Get(key))
	assert.False(t, h.app.Registry().Has(framework.HelperPrefix+"catalog"), "absent entries stay absent")
}

func TestConfigFixture(t *testing.T) {
	h := newHarness(t)
	stores := h.app.Stores()
	_, ok := stores.Config(1, "general/locale/code")
	require.False(t, ok)

	require.NoError(t, h.apply(fixture.ScopeLocal, `
config:
  default/web/unsecure/base_url: http://fixture.test
  stores/default:
    general/locale/code: de_DE
config_xml:
  default/catalog: <seo><product_url_suffix>.html</product_url_suffix></seo>
`))
	url, _ := h.app.Config().GetNode("default/web/unsecure/base_url")
	assert.Equal(t, "http://fixture.test/", url, "backend model normalizes the value")
	locale, ok := stores.Config(1, "general/locale/code")
	require.True(t, ok, "memoized lookups are dropped")
	assert.Equal(t, "de_DE", locale)
	suffix, _ := h.app.Config().GetNode("default/catalog/seo/product_url_suffix")
	assert.Equal(t, ".html", suffix)
	assert.Equal(t, 3, h.env.Snapshots().Depth())

	h.discard(fixture.ScopeLocal)
	_, ok = h.app.Config().GetNode("default/web/unsecure/base_url")
	assert.False(t, ok)
	_, ok = h.app.Config().GetNode("default/catalog/seo/product_url_suffix")
	assert.False(t, ok)
	_, ok = stores.Config(1, "general/locale/code")
	assert.False(t, ok)
	assert.Equal(t, 1, h.env.Snapshots().Depth())
}

func TestConfigBackendRejectsValue(t *testing.T) {
	h := newHarness(t)
	err := h.apply(fixture.ScopeLocal, `
config:
  default/web/secure/base_url: "not a url"
`)
	assert.True(t, apperrors.IsInvalid(err))
	h.discard(fixture.ScopeLocal)
	assert.Equal(t, 1, h.env.Snapshots().Depth())
}

func TestCacheFixture(t *testing.T) {
	h := newHarness(t)
	before := h.app.Cache().Options()

	require.NoError(t, h.apply(fixture.ScopeLocal, `
cache:
  all: false
  config: true
`))
	assert.True(t, h.app.Cache().IsEnabled("config"))
	assert.False(t, h.app.Cache().IsEnabled("layout"))
	assert.False(t, h.app.Cache().IsEnabled("eav"))

	h.discard(fixture.ScopeLocal)
	assert.Equal(t, before, h.app.Cache().Options())
}

func TestCacheFixtureForgetsAddedTypes(t *testing.T) {
	h := newHarness(t)
	before := h.app.Cache().Options()
	require.NotContains(t, before, "foo")

	require.NoError(t, h.apply(fixture.ScopeLocal, `
cache:
  foo: true
`))
	assert.True(t, h.app.Cache().IsEnabled("foo"))

	h.discard(fixture.ScopeLocal)
	assert.False(t, h.app.Cache().IsEnabled("foo"))
	assert.Equal(t, before, h.app.Cache().Options())
}

func TestVFSStack(t *testing.T) {
	h := newHarness(t)
	root := h.app.FS()

	require.NoError(t, h.apply(fixture.ScopeShared, `
vfs:
  etc:
    shared.txt: from shared
`))
	require.NoError(t, h.apply(fixture.ScopeLocal, `
vfs:
  etc:
    local.txt: from local
  var:
`))
	fs := h.app.FS()
	assert.Equal(t, 3, h.engine.FSDepth())
	data, err := afero.ReadFile(fs, "/etc/shared.txt")
	require.NoError(t, err)
	assert.Equal(t, "from shared", string(data))
	data, err = afero.ReadFile(fs, "/etc/local.txt")
	require.NoError(t, err)
	assert.Equal(t, "from local", string(data))
	isDir, err := afero.IsDir(fs, "/var")
	require.NoError(t, err)
	assert.True(t, isDir)

	h.discard(fixture.ScopeLocal)
	assert.Equal(t, 2, h.engine.FSDepth())
	exists, _ := afero.Exists(h.app.FS(), "/etc/local.txt")
	assert.False(t, exists)
	exists, _ = afero.Exists(h.app.FS(), "/etc/shared.txt")
	assert.True(t, exists)

	h.discard(fixture.ScopeShared)
	assert.Equal(t, 1, h.engine.FSDepth())
	assert.Equal(t, root, h.app.FS())
}

func TestUnknownKindIsSkipped(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.apply(fixture.ScopeLocal, `
sales_order:
  - {entity_id: 1}
cache:
  layout: false
`))
	assert.False(t, h.app.Cache().IsEnabled("layout"))
	warnings := h.engine.Registry().Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "sales_order", warnings[0].Kind)
	h.discard(fixture.ScopeLocal)
}
