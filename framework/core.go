package framework

import (
	"context"
	"strings"

	"github.com/kbukum/fixturekit/validation"
)

// Config paths handled by the core module.
const (
	PathUnsecureBaseURL = "web/unsecure/base_url"
	PathSecureBaseURL   = "web/secure/base_url"
	BackendBaseURL      = "core/base_url"
)

// BaseURLBackend normalizes base URLs: the value must be an absolute URL
// and always ends with a slash.
type BaseURLBackend struct{}

type baseURLValue struct {
	URL string `mapstructure:"base_url" validate:"required,url"`
}

func (BaseURLBackend) BeforeSave(_ context.Context, v *ConfigValue) error {
	value := strings.TrimSpace(v.Value)
	if err := validation.Validate(baseURLValue{URL: value}); err != nil {
		return err
	}
	if !strings.HasSuffix(value, "/") {
		value += "/"
	}
	v.Value = value
	return nil
}

// CoreModule registers the core backends and declares them on the base URL
// paths.
type CoreModule struct{}

func (CoreModule) Name() string { return "core" }

func (CoreModule) Init(_ context.Context, app *App) error {
	if err := app.Models().RegisterBackend(BackendBaseURL, BaseURLBackend{}); err != nil {
		return err
	}
	app.Config().DeclareBackend(PathUnsecureBaseURL, BackendBaseURL)
	app.Config().DeclareBackend(PathSecureBaseURL, BackendBaseURL)
	return nil
}

// ConfigFieldPath strips the scope prefix from a full config path:
// default/a/b, websites/<code>/a/b and stores/<code>/a/b all yield a/b.
func ConfigFieldPath(path string) string {
	parts := splitPath(path)
	switch {
	case len(parts) > 1 && parts[0] == "default":
		return strings.Join(parts[1:], "/")
	case len(parts) > 2 && (parts[0] == "websites" || parts[0] == "stores"):
		return strings.Join(parts[2:], "/")
	}
	return strings.Join(parts, "/")
}
