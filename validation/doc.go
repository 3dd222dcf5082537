// Package validation validates configuration structs and fixture rows.
//
// Struct tag validation (go-playground/validator) reports fields under their
// mapstructure key:
//
//	err := validation.Validate(settings) // "base_url.secure: must be a valid URL"
//
// Programmatic validation collects several failures before reporting:
//
//	err := validation.New().
//	    Required("dsn", cfg.DSN).
//	    OneOf("driver", cfg.Driver, []string{"sqlite", "postgres"}).
//	    Validate()
//
// Both return INVALID_INPUT AppErrors.
package validation
