package errors

import (
	"errors"
	"fmt"
)

// This package defines the application's sentinel errors. Services wrap them with
// fmt.Errorf("%w: ...") and the API layer uses errors.Is to turn them into the
// `{success:false, message}` envelope (and, in strict mode, a matching status code).

var (
	// ErrValidation signifies missing or malformed input (InvalidRequest).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound signifies that a chat is absent or not owned by the caller.
	// The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized signifies a missing or invalid credential, or a failed login.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict signifies that an operation conflicts with current state, such as
	// registering an email that is already taken or replaying an in-flight submission.
	ErrConflict = errors.New("resource conflict")

	// ErrUpstream signifies that the external model capability failed or timed out.
	ErrUpstream = errors.New("upstream model error")

	// ErrStorageUnavailable signifies that the durable store failed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInternal signifies an unexpected error on the server.
	ErrInternal = errors.New("internal server error")
)

// Error pairs a sentinel category with a message that is safe to show clients.
// The optional cause is kept for logging only.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

// New returns an error of category kind carrying message.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap is New with an underlying cause.
func Wrap(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap exposes both the category and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// PublicMessage returns the client-safe message attached anywhere in err's chain.
func PublicMessage(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message, true
	}
	return "", false
}
