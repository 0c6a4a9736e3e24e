// Package autherr defines the error taxonomy shared by the auth
// subsystem. Every expected failure carries a Kind so callers can map
// it to a transport status and decide what reaches the client.
package autherr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary handling.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation - malformed or missing input, rejected before any I/O.
	KindValidation
	// KindAuthentication - bad credentials or unknown principal.
	KindAuthentication
	// KindAuthorization - missing, invalid, or expired token.
	KindAuthorization
	// KindIntegrity - data violating a uniqueness invariant. Logged
	// internally, never exposed verbatim.
	KindIntegrity
	// KindStore - persistence failure.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindIntegrity:
		return "integrity"
	case KindStore:
		return "store"
	}
	return "unknown"
}

// Error is a kind-tagged error.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the classification of the error.
func (e *Error) Kind() Kind { return e.kind }

// Is allows errors.Is matching against another kind-tagged error with
// the same kind and message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.kind == t.kind && e.msg == t.msg
}

// E creates a new kind-tagged error.
func E(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// Errorf creates a new kind-tagged error with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and message. Returns nil
// when err is nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf extracts the kind from an error chain. Untagged errors report
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
