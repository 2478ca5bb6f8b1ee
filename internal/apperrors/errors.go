package apperrors

import (
	"errors"
)

// --- Standard Error Definitions ---

// These sentinel errors define common application-level error conditions.
// They are checked with errors.Is; storage and the WhatsApp client wrap them
// with fmt.Errorf("%w: ...") to preserve the chain, and the HTTP boundary maps
// each class to a status code.
var (
	// ErrNotFound indicates a requested resource was not found or is not owned by the tenant.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates failure during data validation.
	ErrValidation = errors.New("validation failed")
	// ErrDatabase indicates a general database interaction error.
	ErrDatabase = errors.New("database error")
	// ErrUnauthorized indicates a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrUnconfigured indicates a tenant is missing required external credentials
	// (e.g. no WhatsApp account row).
	ErrUnconfigured = errors.New("tenant not configured")
	// ErrExternalCall indicates a failure calling an external provider (WhatsApp/AI).
	ErrExternalCall = errors.New("external call failed")
	// ErrDuplicate indicates a conflict due to duplicate data (e.g., unique constraint).
	ErrDuplicate = errors.New("duplicate resource")
	// ErrConflict indicates a general conflict state.
	ErrConflict = errors.New("resource conflict")
	// ErrBadRequest indicates a malformed or invalid request from the client/caller.
	ErrBadRequest = errors.New("bad request")
	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timeout")
)

// --- Specific Standard Error Checkers ---

// IsNotFoundError checks if the error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDatabaseError checks if the error is or wraps ErrDatabase.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsUnauthorizedError checks if the error is or wraps ErrUnauthorized.
func IsUnauthorizedError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUnconfiguredError checks if the error is or wraps ErrUnconfigured.
func IsUnconfiguredError(err error) bool {
	return errors.Is(err, ErrUnconfigured)
}

// IsExternalCallError checks if the error is or wraps ErrExternalCall.
func IsExternalCallError(err error) bool {
	return errors.Is(err, ErrExternalCall)
}

// IsDuplicateError checks if the error is or wraps ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsConflictError checks if the error is or wraps ErrConflict.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsBadRequestError checks if the error is or wraps ErrBadRequest.
func IsBadRequestError(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsTimeoutError checks if the error is or wraps ErrTimeout.
func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout)
}
