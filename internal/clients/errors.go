package clients

import (
	"errors"
	"fmt"
)

// Kind categorizes client errors.
type Kind int

const (
	// KindNetwork covers transport failures, timeouts, 5xx responses, open
	// breakers and undecodable bodies.
	KindNetwork Kind = iota
	// KindAuth indicates a missing or rejected credential.
	KindAuth
	// KindValidation indicates input rejected before or by the server.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is returned by every client operation.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Cause   error

	body []byte
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a validation error raised before any network call.
func NewValidationError(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

// NewAuthError creates an auth error.
func NewAuthError(op, msg string) *Error {
	return &Error{Kind: KindAuth, Op: op, Message: msg}
}

// NewNetworkError wraps a transport-level failure.
func NewNetworkError(op string, cause error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "request failed", Cause: cause}
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr, true
	}
	return nil, false
}

// KindOf returns the kind of err. Errors that did not come from a client are
// treated as network errors.
func KindOf(err error) Kind {
	if ce, ok := AsError(err); ok {
		return ce.Kind
	}
	return KindNetwork
}

// IsAuth reports whether err is an auth error.
func IsAuth(err error) bool {
	ce, ok := AsError(err)
	return ok && ce.Kind == KindAuth
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	ce, ok := AsError(err)
	return ok && ce.Kind == KindValidation
}

// IsNetwork reports whether err is a network error.
func IsNetwork(err error) bool {
	ce, ok := AsError(err)
	return ok && ce.Kind == KindNetwork
}

// Message returns the user-facing message carried by a validation error, or
// fallback.
func Message(err error, fallback string) string {
	if ce, ok := AsError(err); ok && ce.Kind == KindValidation && ce.Message != "" {
		return ce.Message
	}
	return fallback
}

// countsAsSuccess keeps caller mistakes from tripping the breaker.
func countsAsSuccess(err error) bool {
	return err == nil || IsValidation(err) || IsAuth(err)
}
