package config

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/fixturekit/errors"
)

const sampleSettings = `
name: catalog-tests
database:
  enabled: true
  driver: sqlite
  dsn: "file:catalog?mode=memory&cache=shared"
production_dsn: "host=prod dbname=shop"
base_url:
  unsecure: "http://shop.test/"
fixture:
  dirs:
    Mage_Catalog: "app/code/Mage/Catalog/Test/fixtures"
  processors: [table, eav, scope]
cache:
  allowed: [config, eav]
modules: [Mage_Core, Mage_Catalog]
`

func writeFile(t *testing.T, fs afero.Fs, path, body string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
}

func TestLoadSettingsFromDefaultLocation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "etc/local.test.yml", sampleSettings)

	s, err := Load(WithFs(fs))
	require.NoError(t, err)

	assert.Equal(t, "etc/local.test.yml", s.Source)
	assert.Equal(t, "catalog-tests", s.Name)
	assert.True(t, s.Database.Enabled)
	assert.Equal(t, "http://shop.test/", s.BaseURL.Secure, "secure falls back to unsecure")
	assert.Equal(t, "app/code/Mage/Catalog/Test/fixtures", s.Fixture.Dirs["mage_catalog"])
	assert.Equal(t, []string{"table", "eav", "scope"}, s.Fixture.Processors)
	assert.Equal(t, []string{"config", "eav"}, s.Cache.Allowed)
	assert.Equal(t, "info", s.Logging.Level)
}

func TestLoadMissingFileIsConfigurationError(t *testing.T) {
	_, err := Load(WithFs(afero.NewMemMapFs()))
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.True(t, errors.IsFatal(err))

	_, err = LoadFile(afero.NewMemMapFs(), "")
	assert.True(t, errors.IsConfiguration(err))
}

func TestBootstrapEnvOverridesPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "etc/local.test.yml", "name: from-default\n")
	writeFile(t, fs, "ci/local.test.yml", "name: from-bootstrap\n")
	t.Setenv(BootstrapEnv, "ci/local.test.yml")

	s, err := Load(WithFs(fs))
	require.NoError(t, err)
	assert.Equal(t, "from-bootstrap", s.Name)
}

func TestEnvironmentBindsNestedKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "local.test.yml", "name: env\n")
	writeFile(t, fs, ".env", "FIXTUREKIT_BASE_URL_SECURE=https://secure.test/\n")
	t.Cleanup(func() { os.Unsetenv("FIXTUREKIT_BASE_URL_SECURE") })
	t.Setenv("FIXTUREKIT_DATABASE_DSN", "file:env?mode=memory")
	t.Setenv("FIXTUREKIT_DATABASE_ENABLED", "true")

	s, err := Load(WithFs(fs))
	require.NoError(t, err)
	assert.Equal(t, "file:env?mode=memory", s.Database.DSN)
	assert.True(t, s.Database.Enabled)
	assert.Equal(t, "https://secure.test/", s.BaseURL.Secure)
}

func TestValidateRejectsProductionDatabase(t *testing.T) {
	s := Settings{
		Name:          "x",
		ProductionDSN: "host=prod password=secret",
	}
	s.Database.Enabled = true
	s.Database.DSN = "host=prod password=secret"
	s.ApplyDefaults()

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "host=pro***", appErr.DetailMap()["dsn"])
	assert.NotContains(t, err.Error(), "secret")

	s.AllowSameDB = true
	assert.NoError(t, s.Validate())
}

func TestValidateRejectsBadBaseURL(t *testing.T) {
	s := Settings{Name: "x", BaseURL: BaseURL{Unsecure: "::nope"}}
	s.ApplyDefaults()
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url.unsecure")
}

func TestKeyVariants(t *testing.T) {
	assert.Equal(t, []string{"name"}, keyVariants("NAME"))
	assert.Equal(t, []string{"allow_same", "allow.same"}, keyVariants("ALLOW_SAME"))
	assert.Equal(t, []string{
		"base_url_secure",
		"base.url_secure",
		"base_url.secure",
		"base.url.secure",
	}, keyVariants("BASE_URL_SECURE"), "the fully dotted spelling comes last")
}
