package domain

import "errors"

// ErrUnauthenticated indicates no valid session or token.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrNotFound indicates the target record is absent or not owned by the
// caller. Ownership failures are indistinguishable from absence.
var ErrNotFound = errors.New("record not found")

// ErrPersistence indicates a storage-layer failure.
var ErrPersistence = errors.New("persistence failure")

// ValidationError carries a human-readable message for a malformed or
// missing field caught before persistence.
type ValidationError struct {
	msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func (e *ValidationError) Error() string { return e.msg }

// IsValidation reports whether err is (or wraps) a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
