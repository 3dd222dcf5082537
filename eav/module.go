package eav

import (
	"context"

	"github.com/kbukum/fixturekit/framework"
)

// Module registers the EAV config model and the generic attribute setup.
type Module struct{}

func (Module) Name() string { return "eav" }

func (Module) Init(_ context.Context, app *framework.App) error {
	err := app.Models().RegisterModel(ConfigAlias, func() (*Metadata, error) {
		if app.DB() == nil {
			return &Metadata{types: map[string]*EntityType{}, attrs: map[int64]map[string]*Attribute{}}, nil
		}
		return LoadMetadata(app.DB())
	})
	if err != nil {
		return err
	}
	return app.Models().Container().RegisterInstance(SetupKey(DefaultSetupModule), NewSetup(app.Logger()))
}
