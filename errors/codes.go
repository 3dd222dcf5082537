package errors

// ErrorCode is the machine-readable part of an AppError.
type ErrorCode string

const (
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeConsistency marks an apply/discard or substitution sequence
	// that was broken by the caller.
	ErrCodeConsistency   ErrorCode = "CONSISTENCY"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// Fatal reports whether errors with this code should stop the test run
// instead of failing one test.
func (c ErrorCode) Fatal() bool {
	return c == ErrCodeConsistency || c == ErrCodeConfiguration
}
