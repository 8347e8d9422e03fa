package domainerrors

import "errors"

// Code represents a domain error category independent of any transport or
// storage backend. These codes describe what went wrong in wallet/storage
// terms, not HTTP or driver terms.
type Code string

const (
	// CodeNotFound marks an absent item: credential, metadata record,
	// generic storage record.
	CodeNotFound Code = "not_found"
	// CodeDuplicate marks an ambiguous tag-filter query that matched more
	// than one record.
	CodeDuplicate Code = "duplicate"
	// CodeBackend marks any other collaborator failure; instances always
	// carry a fixed contextual message plus the original cause.
	CodeBackend Code = "backend_error"
	// CodeValidation marks malformed construction, such as a record type
	// declared without a record-type tag.
	CodeValidation Code = "validation_failed"
	// CodeInvalidInput marks rejected caller input.
	CodeInvalidInput Code = "invalid_input"
	// CodeInternal marks misconfiguration inside this layer itself.
	CodeInternal Code = "internal_error"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		// Preserve the original domain code, update message
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
