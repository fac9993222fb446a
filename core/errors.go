package core

import "github.com/pkg/errors"

// Shared error kinds. Business services return these (or wrap them); the API
// layer owns the translation to HTTP statuses.
var (
	// ErrPermissionDenied - the actor lacks the role or assignment required by the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrLockedPeriod - a write was attempted against a locked quarter or semester.
	ErrLockedPeriod = errors.New("period is locked")

	// ErrInvalidState - a state transition was attempted from a state that does not allow it.
	ErrInvalidState = errors.New("invalid state for this operation")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

// NewShutdownError returns an error that signals the server to initiate a graceful shutdown.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
