package testapp_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/fixturekit/component"
	"github.com/kbukum/fixturekit/config"
	dbtest "github.com/kbukum/fixturekit/database/testutil"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/testapp"
	gktest "github.com/kbukum/fixturekit/testutil"
)

var _ gktest.TestComponent = (*testapp.Environment)(nil)

func TestSubstitutionTransitions(t *testing.T) {
	live := framework.NewApp(framework.Options{Name: "live"})
	rt := framework.NewRuntime(live.Globals())
	sub := testapp.NewSubstitution(rt)
	assert.Equal(t, testapp.StateLive, sub.State())

	err := sub.DiscardTestScope()
	assert.True(t, apperrors.IsConsistency(err), "discard while live")

	scoped := framework.NewApp(framework.Options{Name: "test"})
	require.NoError(t, sub.ApplyTestScope(scoped.Globals()))
	assert.Equal(t, testapp.StateTestScoped, sub.State())
	assert.Same(t, scoped, rt.App())
	_, err = uuid.Parse(sub.RunID())
	assert.NoError(t, err)

	err = sub.ApplyTestScope(framework.NewApp(framework.Options{}).Globals())
	assert.True(t, apperrors.IsConsistency(err), "apply twice")
	assert.Same(t, scoped, rt.App(), "a refused apply changes nothing")

	require.NoError(t, sub.DiscardTestScope())
	g := rt.Current()
	assert.Same(t, live, g.App)
	assert.Same(t, live.Config(), g.Config)
	assert.Same(t, live.Events(), g.Events)
	assert.Same(t, live.Registry(), g.Registry)
	assert.Empty(t, sub.RunID())
}

func TestSnapshotsRestoreAndFlush(t *testing.T) {
	cfg := framework.NewConfig()
	cfg.SetNode("default/web/unsecure/base_url", "http://base/")
	s := testapp.NewSnapshots(cfg)

	assert.True(t, apperrors.IsConsistency(s.LoadScopeSnapshot()))

	s.SaveScopeSnapshot()
	for n := 0; n < 3; n++ {
		s.SaveScopeSnapshot()
		cfg.SetNode("default/web/unsecure/base_url", "http://changed/")
		cfg.SetNode("default/general/locale/code", "de_DE")

		require.NoError(t, s.LoadScopeSnapshot())
		v, _ := cfg.GetNode("default/web/unsecure/base_url")
		assert.Equal(t, "http://base/", v)
		_, ok := cfg.GetNode("default/general/locale/code")
		assert.False(t, ok)

		require.NoError(t, s.LoadScopeSnapshot(), "restoring twice is harmless")
		s.FlushScopeSnapshot()
	}
	assert.Equal(t, 1, s.Depth())
	s.FlushScopeSnapshot()
	assert.Equal(t, 1, s.Depth(), "the base snapshot stays")
}

func settings() *config.Settings {
	s := &config.Settings{Name: "env-test", BaseURL: config.BaseURL{Unsecure: "http://shop.test"}}
	s.ApplyDefaults()
	return s
}

func TestEnvironmentStartStop(t *testing.T) {
	ctx := context.Background()
	tc := dbtest.NewComponent().WithMigrations(framework.SchemaMigrations()...)
	gktest.T(t).Setup(tc)

	live := framework.NewApp(framework.Options{Name: "live"})
	rt := framework.NewRuntime(live.Globals())
	env := testapp.New(testapp.Options{Settings: settings(), DB: tc.DB(), Runtime: rt})

	require.NoError(t, env.Start(ctx))
	app := env.App()
	require.NotNil(t, app)
	assert.Same(t, app, rt.App())
	assert.Equal(t, component.StatusHealthy, env.Health(ctx).Status)

	assert.Equal(t, []string{"core", "eav"}, app.Modules())
	assert.True(t, app.Events().IsAreaLoaded(framework.AreaGlobal))
	assert.True(t, app.Events().IsAreaLoaded(framework.AreaTest))
	_, ok := app.Stores().Store("default")
	assert.True(t, ok, "stores are loaded from the database")

	url, _ := app.Config().GetNode("default/" + framework.PathUnsecureBaseURL)
	assert.Equal(t, "http://shop.test/", url)
	url, _ = app.Config().GetNode("default/" + framework.PathSecureBaseURL)
	assert.Equal(t, "http://shop.test/", url, "secure falls back to unsecure")

	storage, ok := app.Registry().Get(fixture.StorageRegistryKey).(*fixture.Storage)
	require.True(t, ok)
	assert.Same(t, storage, env.Engine().Storage())
	assert.Equal(t, env.Substitution().RunID(), storage.Get(fixture.KeyRunID))
	assert.Equal(t, 1, env.Snapshots().Depth())

	assert.True(t, apperrors.IsConsistency(env.Start(ctx)))

	require.NoError(t, env.Stop(ctx))
	assert.Same(t, live, rt.App())
	assert.Equal(t, testapp.StateLive, env.Substitution().State())
	require.NoError(t, env.Stop(ctx), "stopping twice is a no-op")
	assert.Equal(t, component.StatusUnhealthy, env.Health(ctx).Status)
}

func TestEnvironmentSelectsProcessors(t *testing.T) {
	s := settings()
	s.Fixture.Processors = []string{"config", "registry", "nope"}
	env := testapp.New(testapp.Options{Settings: s})
	require.NoError(t, env.Start(context.Background()))
	t.Cleanup(func() { _ = env.Stop(context.Background()) })

	assert.Equal(t, []string{"config", "registry"}, env.Engine().Registry().Kinds())
	require.Len(t, env.Engine().Registry().Warnings(), 1)
	assert.Equal(t, "nope", env.Engine().Registry().Warnings()[0].Kind)
}

func TestEnvironmentResetSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	env := testapp.New(testapp.Options{Settings: settings()})
	h := gktest.T(t)
	h.Setup(env)
	app := env.App()

	snap := h.Snapshot(env)
	app.Config().SetNode("default/general/locale/code", "fr_FR")
	app.Registry().Set("current_product", 42)
	app.Registry().Set(fixture.StorageRegistryKey, nil)
	h.Restore(env, snap)

	_, ok := app.Config().GetNode("default/general/locale/code")
	assert.False(t, ok)
	assert.False(t, app.Registry().Has("current_product"))
	assert.NotNil(t, app.Registry().Get(fixture.StorageRegistryKey))

	require.NoError(t, app.Events().Dispatch(ctx, "catalog_product_save_after", nil))
	require.NoError(t, app.Models().ReplaceByMock(framework.MockSingleton, "catalog/product", "mock"))
	h.Reset(env)
	assert.Zero(t, app.Events().DispatchedCount("catalog_product_save_after"))
	assert.Zero(t, app.Models().MockCount())
}

type runner struct {
	code int
	seen *testapp.Environment
}

func (r *runner) Run() int {
	r.seen = testapp.Current()
	return r.code
}

func TestMainRunsInsideEnvironment(t *testing.T) {
	r := &runner{code: 3}
	var out bytes.Buffer
	code := testapp.Main(r, testapp.Options{Settings: settings()}, &out)
	assert.Equal(t, 3, code)
	require.NotNil(t, r.seen)
	assert.Nil(t, testapp.Current())
	assert.Equal(t, testapp.StateLive, r.seen.Substitution().State())
	assert.Empty(t, out.String())
}

func TestMainReportsConfigurationErrors(t *testing.T) {
	t.Setenv(config.BootstrapEnv, "does/not/exist/local.test.yml")
	r := &runner{}
	var out bytes.Buffer
	code := testapp.Main(r, testapp.Options{}, &out)
	assert.Equal(t, 1, code)
	assert.Nil(t, r.seen, "tests do not run")
	assert.Contains(t, out.String(), "fixturekit:")
}
