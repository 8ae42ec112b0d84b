// Package serrors implements semantic errors: a closed set of failure kinds
// that callers branch on with errors.Is, plus a wrapper carrying the kind, an
// optional cause and an optional message.
package serrors

import (
	"errors"
	"fmt"
)

// Kind is a marker interface implemented by all semantic error kinds created
// with NewKind. It allows distinguishing semantic kinds from ordinary errors.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind (a sentinel) with the provided name.
func NewKind(name string) Kind { return kind{s: name} }

// Probe failure kinds. Timeout and ServerBusy are transient and worth another
// attempt; the others are permanent for the lifetime of a request.
var (
	// ErrTimeout indicates the WHOIS lookup did not complete in time.
	ErrTimeout = NewKind("TIMEOUT")
	// ErrServerBusy indicates the WHOIS server answered with a busy or rate-limit notice.
	ErrServerBusy = NewKind("SERVER_BUSY")
	// ErrExpiryDateParse indicates a response was received but carried no recognizable expiry field.
	ErrExpiryDateParse = NewKind("EXPIRY_DATE_PARSE")
	// ErrTransport indicates a malformed query, a server map miss or a network failure.
	ErrTransport = NewKind("TRANSPORT")
	// ErrInternal is the catch-all for failures that fit no other kind.
	ErrInternal = NewKind("INTERNAL")
	// ErrBadRequest indicates the caller sent invalid input.
	ErrBadRequest = NewKind("BAD_REQUEST")
	// ErrMethodNotAllowed indicates the caller used an unsupported HTTP method.
	ErrMethodNotAllowed = NewKind("METHOD_NOT_ALLOWED")
)

// Error represents a semantic error carrying a kind (sentinel), an optional
// wrapped error and an optional arbitrary message. errors.Is and errors.As
// match either the kind or anything in the wrapped chain.
//
// Error string formatting:
//   - If both msg and err are set: "<msg>: <err>"
//   - If only msg is set: "<msg>"
//   - If only err is set: "<err>"
//   - If neither set: the kind's Error() string.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With constructs a new semantic error with the given kind and message.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap constructs a new semantic error with the given kind around cause err.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly creates a semantic error carrying only the kind.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	default:
		if e.kind != nil {
			return e.kind.Error()
		}

		return "unknown error"
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// Is matches against either the kind sentinel or the wrapped error chain.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	if e.err != nil && errors.Is(e.err, target) {
		return true
	}

	return false
}

// As supports type assertions against either the kind or the wrapped chain.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}
	if e.err != nil && errors.As(e.err, target) {
		return true
	}

	return false
}

// Kind returns the semantic kind sentinel associated with this error, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the arbitrary message attached to this error.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped cause (may be nil).
func (e *Error) Cause() error { return e.err }

// KindOf returns the outermost kind found in err's chain, or nil when err
// carries no semantic kind.
func KindOf(err error) Kind {
	if err == nil {
		return nil
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}

	return nil
}

// KindName is KindOf rendered for logs; unclassified errors report as INTERNAL.
func KindName(err error) string {
	if k := KindOf(err); k != nil {
		return k.Error()
	}

	return ErrInternal.Error()
}

// IsTransient reports whether err is of a kind worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrServerBusy)
}
