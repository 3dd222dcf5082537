package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/fixturekit/errors"
)

// Driver messages that survive without TranslateError, from raw Exec
// statements or a dropped connection.
var (
	duplicateMarkers = []string{"unique constraint", "duplicate key", "primary key must be unique"}
	connMarkers      = []string{"connection refused", "connection reset", "broken pipe", "i/o timeout", "no route to host", "bad connection", "database is closed"}
)

func containsAny(err error, markers []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func IsConnectionError(err error) bool { return containsAny(err, connMarkers) }

func IsNotFoundError(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// IsDuplicateError reports a unique-key violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || containsAny(err, duplicateMarkers)
}

// FromDatabase maps a gorm or driver error on resource to an AppError.
// AppErrors pass through unchanged. Callers check err first; nil maps to a
// nil *AppError.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	switch {
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "").WithCause(err)
	case IsDuplicateError(err):
		return apperrors.New(apperrors.ErrCodeDatabaseError, fmt.Sprintf("%s with the same key already exists", resource)).
			WithDetail("duplicate", true).
			WithCause(err)
	case IsConnectionError(err):
		return apperrors.New(apperrors.ErrCodeDatabaseError, "database is unavailable").
			WithDetail("resource", resource).
			WithCause(err)
	}
	return apperrors.DatabaseError(err).WithDetail("resource", resource)
}
