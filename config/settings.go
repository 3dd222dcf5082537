package config

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
	"github.com/kbukum/fixturekit/validation"
)

// BaseURL holds the storefront URLs the test application runs under.
type BaseURL struct {
	Unsecure string `yaml:"unsecure" mapstructure:"unsecure" validate:"omitempty,url"`
	Secure   string `yaml:"secure" mapstructure:"secure" validate:"omitempty,url"`
}

// FixtureSettings configures fixture resolution and processing.
type FixtureSettings struct {
	// Dirs maps a module name to the directory holding its fixture files,
	// used to resolve "~Module/name" references.
	Dirs map[string]string `yaml:"dirs" mapstructure:"dirs"`
	// Processors lists the enabled processor kinds in registration order.
	// Empty means every built-in kind.
	Processors []string `yaml:"processors" mapstructure:"processors"`
}

// CacheSettings configures which cache types stay enabled during tests.
type CacheSettings struct {
	Allowed []string `yaml:"allowed" mapstructure:"allowed"`
}

// Settings is the test-run configuration read from local.test.yml.
type Settings struct {
	Name          string          `yaml:"name" mapstructure:"name" validate:"required"`
	Logging       logger.Config   `yaml:"logging" mapstructure:"logging"`
	Database      database.Config `yaml:"database" mapstructure:"database"`
	ProductionDSN string          `yaml:"production_dsn" mapstructure:"production_dsn"`
	AllowSameDB   bool            `yaml:"allow_same_db" mapstructure:"allow_same_db"`
	BaseURL       BaseURL         `yaml:"base_url" mapstructure:"base_url"`
	Fixture       FixtureSettings `yaml:"fixture" mapstructure:"fixture"`
	Cache         CacheSettings   `yaml:"cache" mapstructure:"cache"`
	Modules       []string        `yaml:"modules" mapstructure:"modules"`

	// Source is the settings file the values were read from.
	Source string `yaml:"-" mapstructure:"-"`
}

// defaults are registered with viper so environment variables can bind to
// nested keys absent from the file.
func defaults() map[string]any {
	return map[string]any{
		"name":               "fixturekit",
		"logging.level":      "info",
		"logging.format":     logger.FormatConsole,
		"logging.output":     "stderr",
		"database.enabled":   false,
		"database.driver":    database.DriverSQLite,
		"database.dsn":       "",
		"production_dsn":     "",
		"allow_same_db":      false,
		"base_url.unsecure":  "",
		"base_url.secure":    "",
		"fixture.processors": []string{},
		"cache.allowed":      []string{},
		"modules":            []string{},
	}
}

// ApplyDefaults fills zero values.
func (s *Settings) ApplyDefaults() {
	if s.Name == "" {
		s.Name = "fixturekit"
	}
	s.Logging.ApplyDefaults()
	s.Database.ApplyDefaults()
	if s.Fixture.Dirs == nil {
		s.Fixture.Dirs = map[string]string{}
	}
	if s.BaseURL.Secure == "" {
		s.BaseURL.Secure = s.BaseURL.Unsecure
	}
}

// Validate reports unusable settings as a CONFIGURATION error.
func (s *Settings) Validate() error {
	if err := validation.Validate(s); err != nil {
		return errors.Configuration("invalid settings").WithCause(err)
	}
	if err := s.Logging.Validate(); err != nil {
		return errors.Configuration("invalid logging settings").WithCause(err)
	}
	if err := s.Database.Validate(); err != nil {
		return errors.Configuration("invalid database settings").WithCause(err)
	}
	if s.Database.Enabled && s.ProductionDSN != "" && !s.AllowSameDB && s.Database.DSN == s.ProductionDSN {
		return errors.Configuration("test database is the production database; set allow_same_db to run against it").
			WithDetail("dsn", util.MaskSecret(s.Database.DSN, 8))
	}
	return nil
}

// Load reads, defaults and validates Settings. A missing file, unreadable
// YAML or invalid values are CONFIGURATION errors.
func Load(opts ...LoaderOption) (*Settings, error) {
	opts = append([]LoaderOption{WithDefaults(defaults()), Required()}, opts...)

	var s Settings
	files, err := LoadInto(&s, opts...)
	if err != nil {
		return nil, errors.Configuration("cannot load settings").WithCause(err)
	}
	s.Source = files.ConfigFile
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile is Load for an explicit path on fs.
func LoadFile(fs afero.Fs, path string) (*Settings, error) {
	if path == "" {
		return nil, errors.Configuration(fmt.Sprintf("no settings file given (expected %s)", DefaultSettingsFile))
	}
	return Load(WithFs(fs), WithConfigFile(path))
}
