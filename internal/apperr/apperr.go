// Package apperr defines the error taxonomy shared by services and HTTP
// handlers.  Services classify failures; handlers translate the class into a
// status code and a client-safe message.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error.
type Kind int

const (
	KindDependency Kind = iota // persistence or outbound call failed
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
)

// Error is an application error with a client-facing message.  Err carries
// the underlying cause for logging and is never shown to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text returned to clients.  Dependency failures never
// leak their detail.
func (e *Error) PublicMessage() string {
	if e.Kind == KindDependency {
		return "Internal server error"
	}
	return e.Message
}

func Validation(msg string) *Error     { return &Error{Kind: KindValidation, Message: msg} }
func Authentication(msg string) *Error { return &Error{Kind: KindAuthentication, Message: msg} }
func Authorization(msg string) *Error  { return &Error{Kind: KindAuthorization, Message: msg} }
func NotFound(msg string) *Error       { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error       { return &Error{Kind: KindConflict, Message: msg} }
func RateLimit(msg string) *Error      { return &Error{Kind: KindRateLimit, Message: msg} }

// Dependency wraps a failure of an external collaborator.
func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// As extracts an *Error from err.  Unclassified errors are reported as
// dependency failures.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Dependency("unexpected error", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
