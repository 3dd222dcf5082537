package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	// DefaultSettingsFile is the local override file looked up when no explicit path is given.
	DefaultSettingsFile = "local.test.yml"
	// BootstrapEnv names the environment variable overriding the settings file path.
	BootstrapEnv = "FIXTUREKIT_BOOTSTRAP"
	// EnvPrefix prefixes environment variables bound onto settings keys.
	EnvPrefix = "FIXTUREKIT"
)

// Resolver finds the settings and .env files on a filesystem.
type Resolver struct {
	Fs afero.Fs
}

// ResolvedFiles contains the resolved settings and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when provided, otherwise searches the
// standard locations. The bootstrap environment variable wins over both.
func (r *Resolver) ResolveFiles(opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{ConfigFile: opts.ConfigFile, EnvFile: opts.EnvFile}

	if env := os.Getenv(BootstrapEnv); env != "" {
		resolved.ConfigFile = env
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.first(searchPaths(DefaultSettingsFile))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.first(searchPaths(".env"))
	}
	return resolved
}

func (r *Resolver) first(paths []string) string {
	for _, p := range paths {
		if ok, _ := afero.Exists(r.Fs, p); ok {
			return p
		}
	}
	return ""
}

func searchPaths(name string) []string {
	return []string{
		filepath.Join("etc", name),
		filepath.Join("app", "etc", name),
		name,
		filepath.Join("..", "etc", name),
		filepath.Join("..", name),
		filepath.Join("..", "..", name),
	}
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	Fs         afero.Fs
	ConfigFile string
	EnvFile    string
	// Required makes a missing settings file an error.
	Required bool
	// Defaults seeds viper so every known key can be bound from the environment.
	Defaults map[string]any
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFs sets the filesystem the loader reads from.
func WithFs(fs afero.Fs) LoaderOption {
	return func(lc *LoaderConfig) { lc.Fs = fs }
}

// WithConfigFile sets an explicit settings file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithDefaults seeds default values for settings keys.
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(lc *LoaderConfig) { lc.Defaults = defaults }
}

// Required makes a missing settings file an error instead of falling back to defaults.
func Required() LoaderOption {
	return func(lc *LoaderConfig) { lc.Required = true }
}

// LoadInto resolves the settings and .env files, binds FIXTUREKIT_*
// environment variables and unmarshals the result into cfg.
func LoadInto(cfg interface{}, opts ...LoaderOption) (ResolvedFiles, error) {
	lc := LoaderConfig{}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.Fs == nil {
		lc.Fs = afero.NewOsFs()
	}

	files := (&Resolver{Fs: lc.Fs}).ResolveFiles(lc)
	v := viper.New()
	v.SetFs(lc.Fs)
	for k, val := range lc.Defaults {
		v.SetDefault(k, val)
	}

	exists := false
	if files.ConfigFile != "" {
		exists, _ = afero.Exists(lc.Fs, files.ConfigFile)
	}
	switch {
	case exists:
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return files, fmt.Errorf("read %s: %w", files.ConfigFile, err)
		}
	case lc.Required:
		if files.ConfigFile == "" {
			return files, fmt.Errorf("settings file %s not found", DefaultSettingsFile)
		}
		return files, fmt.Errorf("settings file %s not found", files.ConfigFile)
	}

	if files.EnvFile != "" {
		if err := loadEnvFile(lc.Fs, files.EnvFile); err != nil {
			return files, fmt.Errorf("load %s: %w", files.EnvFile, err)
		}
	}
	bindEnv(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return files, fmt.Errorf("decode settings: %w", err)
	}
	return files, nil
}

// loadEnvFile reads KEY=VALUE pairs with godotenv; variables already present
// in the process environment are not overwritten.
func loadEnvFile(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return err
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); !set {
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// bindEnv maps FIXTUREKIT_A_B_C onto every nesting variant of a.b.c that
// already exists in the settings tree, falling back to a_b_c.
//
//	FIXTUREKIT_DATABASE_DSN -> database.dsn
//	FIXTUREKIT_BASE_URL_SECURE -> base_url.secure
func bindEnv(v *viper.Viper, environ []string) {
	prefix := EnvPrefix + "_"
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) || key == BootstrapEnv {
			continue
		}
		variants := keyVariants(strings.TrimPrefix(key, prefix))
		bound := false
		for _, variant := range variants {
			if v.IsSet(variant) {
				v.Set(variant, value)
				bound = true
			}
		}
		if !bound {
			v.Set(variants[len(variants)-1], value)
		}
	}
}

// keyVariants lists the dotted spellings of an underscore-separated key,
// ending with the fully dotted one.
func keyVariants(envKey string) []string {
	parts := strings.Split(strings.ToLower(envKey), "_")
	if len(parts) == 1 {
		return parts
	}

	dotted := strings.Join(parts, ".")
	seen := map[string]bool{dotted: true}
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(strings.Join(parts, "_"))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
		add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:], "."))
	}
	return append(out, dotted)
}
