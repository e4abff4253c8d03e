package model

import "errors"

var (
	// ErrNotFound marks a missing calendar or calendar object.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an etag mismatch on update or delete
	// (concurrent modification).
	ErrConflict = errors.New("etag conflict")
)

// ValidationError is a user-input failure detected before any
// collaborator call. It is never retried and never wrapped around a
// network error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validationf(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
