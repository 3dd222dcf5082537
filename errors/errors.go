package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
)

// AppError carries a code the test runner can branch on. Fatal errors
// (broken lifecycle, bad configuration) abort the run; the rest fail a
// single test.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Fatal   bool           `json:"fatal"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches cause and returns e for chaining.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail records key for log output and returns e for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// DetailMap returns a copy of the details, never nil.
func (e *AppError) DetailMap() map[string]any {
	out := make(map[string]any, len(e.Details))
	maps.Copy(out, e.Details)
	return out
}

// New builds an error whose Fatal flag follows the code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Fatal: code.Fatal()}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// NotFound reports an unresolved fixture, expectation or record. id may be
// empty.
func NotFound(resource, id string) *AppError {
	if id == "" {
		return New(ErrCodeNotFound, resource+" not found").WithDetail("resource", resource)
	}
	return New(ErrCodeNotFound, fmt.Sprintf("%s %q not found", resource, id)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// InvalidInput reports malformed fixture data. field may be empty.
func InvalidInput(field, reason string) *AppError {
	err := New(ErrCodeInvalidInput, "invalid input: "+reason)
	if field != "" {
		err.WithDetail("field", field)
	}
	return err
}

// Validation reports one or more failed checks, already formatted.
func Validation(message string) *AppError { return New(ErrCodeInvalidInput, message) }

func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, "missing required field: "+field).WithDetail("field", field)
}

// Consistency reports an apply/discard or substitution call out of order.
func Consistency(message string) *AppError { return New(ErrCodeConsistency, message) }

func Configuration(message string) *AppError { return New(ErrCodeConfiguration, message) }

func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "database operation failed").WithCause(cause)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// CodeOf returns the code of the first AppError in the chain, or "".
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsInvalid matches both malformed input and missing fields.
func IsInvalid(err error) bool {
	switch CodeOf(err) {
	case ErrCodeInvalidInput, ErrCodeMissingField:
		return true
	}
	return false
}

func IsConsistency(err error) bool { return CodeOf(err) == ErrCodeConsistency }

func IsConfiguration(err error) bool { return CodeOf(err) == ErrCodeConfiguration }

// IsFatal reports whether err should abort the whole run.
func IsFatal(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Fatal
}
