package models

import "errors"

// ErrorKind is a machine-readable failure category surfaced on session snapshots.
type ErrorKind string

const (
	// KindUnauthorized means the bearer token is missing, invalid or expired.
	// The host is expected to send the operator back to login.
	KindUnauthorized ErrorKind = "Unauthorized"
	// KindValidationRejected means the remote service refused the request, or
	// answered with a payload that does not match the expected schema.
	KindValidationRejected ErrorKind = "ValidationRejected"
	// KindTransport covers network failures, timeouts and 5xx answers.
	KindTransport ErrorKind = "Transport"

	KindIndexOutOfRange    ErrorKind = "IndexOutOfRange"
	KindInvalidHorizon     ErrorKind = "InvalidHorizon"
	KindIdentityUnresolved ErrorKind = "IdentityUnresolved"
	KindNoDataAvailable    ErrorKind = "NoDataAvailable"
)

// SessionError is the structured error type used across the forecast session.
type SessionError struct {
	Kind    ErrorKind // Failure category
	Message string    // Operator-facing message
	Cause   error     // Wrapped underlying error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Cause != nil && e.Message == "" {
		return string(e.Kind) + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *SessionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *SessionError) Is(target error) bool {
	if t, ok := target.(*SessionError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// NewError creates a session error with a kind and message.
func NewError(kind ErrorKind, message string) *SessionError {
	return &SessionError{Kind: kind, Message: message}
}

// WrapError creates a session error that wraps an underlying cause.
func WrapError(kind ErrorKind, message string, cause error) *SessionError {
	return &SessionError{Kind: kind, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons; only the kind is compared.
var (
	ErrUnauthorized       = NewError(KindUnauthorized, "unauthorized")
	ErrValidationRejected = NewError(KindValidationRejected, "validation rejected")
	ErrTransport          = NewError(KindTransport, "transport failure")
	ErrIndexOutOfRange    = NewError(KindIndexOutOfRange, "index out of range")
	ErrInvalidHorizon     = NewError(KindInvalidHorizon, "invalid horizon")
	ErrIdentityUnresolved = NewError(KindIdentityUnresolved, "identity unresolved")
	ErrNoDataAvailable    = NewError(KindNoDataAvailable, "no data available")
)

// ErrorInfo is the serializable projection of a failure carried on a snapshot.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// InfoFromError projects any error onto ErrorInfo. Errors that are not
// SessionErrors are reported as transport failures.
func InfoFromError(err error) ErrorInfo {
	var se *SessionError
	if errors.As(err, &se) {
		return ErrorInfo{Kind: se.Kind, Message: se.Error()}
	}
	return ErrorInfo{Kind: KindTransport, Message: err.Error()}
}

// KindOf returns the kind of err, or the empty kind when err is not a SessionError.
func KindOf(err error) ErrorKind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
