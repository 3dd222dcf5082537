package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/fixturekit/errors"
)

// FieldError names one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

// Validator accumulates failed checks so a caller can report all of them
// at once. Checks chain:
//
//	err := validation.New().Required("dsn", cfg.DSN).OneOf("driver", cfg.Driver, drivers).Validate()
type Validator struct {
	failed []FieldError
}

func New() *Validator { return &Validator{} }

func (v *Validator) fail(field, msg string) *Validator {
	v.failed = append(v.failed, FieldError{Field: field, Message: msg})
	return v
}

// Required fails on an empty or blank value.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) != "" {
		return v
	}
	return v.fail(field, "is required")
}

// OneOf fails when a non-empty value is outside allowed.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" || slices.Contains(allowed, value) {
		return v
	}
	return v.fail(field, "must be one of: "+strings.Join(allowed, ", "))
}

// Custom fails with msg unless ok.
func (v *Validator) Custom(ok bool, field, msg string) *Validator {
	if ok {
		return v
	}
	return v.fail(field, msg)
}

// Customf is Custom with a formatted message.
func (v *Validator) Customf(ok bool, field, format string, args ...any) *Validator {
	if ok {
		return v
	}
	return v.fail(field, fmt.Sprintf(format, args...))
}

func (v *Validator) HasErrors() bool { return len(v.failed) > 0 }

func (v *Validator) Errors() []FieldError { return v.failed }

// Validate returns nil or one INVALID_INPUT error listing every failure.
func (v *Validator) Validate() error {
	if len(v.failed) == 0 {
		return nil
	}
	return toAppError(v.failed)
}

func toAppError(fields []FieldError) *errors.AppError {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", fields)
}
