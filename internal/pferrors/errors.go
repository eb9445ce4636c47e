// Package pferrors implements the parameter framework's error type.
//
// It follows the chromiumos/tast errors package idiom: a single concrete
// error type E carrying a message and an optional wrapped cause, built with
// New/Errorf/Wrap/Wrapf, and meant to be embedded by more specific error
// types the way xmlrpc.FaultError embeds *errors.E.
package pferrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error per the taxonomy in the framework's error design.
type Kind int

const (
	// Unclassified is the zero value; used by callers that don't care.
	Unclassified Kind = iota
	PathNotFound
	PathNotExhausted
	TypeMismatch
	OutOfRange
	Unrepresentable
	InvalidFormat
	InvariantViolation
	StateViolation
	SyncError
	IntegrityError
)

func (k Kind) String() string {
	switch k {
	case PathNotFound:
		return "PathNotFound"
	case PathNotExhausted:
		return "PathNotExhausted"
	case TypeMismatch:
		return "TypeMismatch"
	case OutOfRange:
		return "OutOfRange"
	case Unrepresentable:
		return "Unrepresentable"
	case InvalidFormat:
		return "InvalidFormat"
	case InvariantViolation:
		return "InvariantViolation"
	case StateViolation:
		return "StateViolation"
	case SyncError:
		return "SyncError"
	case IntegrityError:
		return "IntegrityError"
	default:
		return "Unclassified"
	}
}

// E is the framework's error type. It is usually not constructed directly;
// use New, Errorf, Wrap or Wrapf.
type E struct {
	kind  Kind
	path  string
	msg   string
	cause error
}

// New creates an unclassified error with the given message.
func New(msg string) *E {
	return &E{msg: msg}
}

// Errorf creates an unclassified error with a formatted message.
func Errorf(format string, args ...interface{}) *E {
	return &E{msg: fmt.Sprintf(format, args...)}
}

// ForKind creates an error of the given kind with a formatted message.
func ForKind(kind Kind, format string, args ...interface{}) *E {
	return &E{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a new error that wraps cause and carries the cause's kind.
func Wrap(cause error, msg string) *E {
	return &E{msg: msg, cause: cause, kind: kindOf(cause)}
}

// Wrapf is like Wrap but with a formatted message.
func Wrapf(cause error, format string, args ...interface{}) *E {
	return &E{msg: fmt.Sprintf(format, args...), cause: cause, kind: kindOf(cause)}
}

// WithPath returns a copy of e annotated with the offending element path, as
// required of every user-facing navigation/access error.
func (e *E) WithPath(path string) *E {
	cp := *e
	cp.path = path
	return &cp
}

// Path returns the offending element path, if any was attached.
func (e *E) Path() string {
	if e == nil {
		return ""
	}
	return e.path
}

// ErrKind returns the error's classification.
func (e *E) ErrKind() Kind {
	if e == nil {
		return Unclassified
	}
	return e.kind
}

func (e *E) Error() string {
	msg := e.msg
	if e.path != "" {
		msg = fmt.Sprintf("%s (path %s)", msg, e.path)
	}
	if e.kind != Unclassified {
		msg = fmt.Sprintf("[%s] %s", e.kind, msg)
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

func (e *E) Unwrap() error {
	return e.cause
}

// kindOf recovers the kind carried by a wrapped *E, if any, so that Wrap
// chains keep the original classification visible to KindOf.
func kindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.kind
	}
	return Unclassified
}

// KindOf reports the Kind carried by err, walking the Unwrap chain.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.kind
	}
	return Unclassified
}

// Is exposes errors.Is over the wrapped cause, so *E participates normally
// in standard library error matching.
func (e *E) Is(target error) bool {
	return errors.Is(e.cause, target)
}
