// Package rerror defines the shared error taxonomy used across rupdate.
//
// Every fatal condition a component raises carries a Kind so callers can
// branch on what went wrong without string matching, while the underlying
// cause (I/O failure, JSON error, ...) is preserved for logging with
// github.com/pkg/errors' stack-trace support.
package rerror

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies a class of failure from the error taxonomy in spec §7.
type Kind int

const (
	// Generic is used when no more specific kind applies.
	Generic Kind = iota
	BadMagic
	UnsupportedVersion
	MalformedEncoding
	ChecksumMismatch
	NoValidState
	NotFound
	InvalidStateTransition
	BadBundle
	IoError
	Busy
)

func (k Kind) String() string {
	switch k {
	case BadMagic:
		return "BadMagic"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case MalformedEncoding:
		return "MalformedEncoding"
	case ChecksumMismatch:
		return "ChecksumMismatch"
	case NoValidState:
		return "NoValidState"
	case NotFound:
		return "NotFound"
	case InvalidStateTransition:
		return "InvalidStateTransition"
	case BadBundle:
		return "BadBundle"
	case IoError:
		return "IoError"
	case Busy:
		return "Busy"
	default:
		return "Generic"
	}
}

// ExitCode maps a Kind to the process exit code from spec §6.1.
func (k Kind) ExitCode() int {
	switch k {
	case InvalidStateTransition:
		return 3
	case BadBundle:
		return 4
	case BadMagic, UnsupportedVersion, MalformedEncoding, ChecksumMismatch, NoValidState:
		return 5
	case Generic, NotFound, IoError, Busy:
		return 1
	default:
		return 1
	}
}

// Error is a Kind-tagged error wrapping an underlying cause.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		// e.err is already errors.Wrap(cause, e.msg), so it renders as
		// "msg: cause" on its own — prefixing e.msg again here would
		// print it twice.
		return fmt.Sprintf("%s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.err }

// New creates a Kind-tagged error with no further cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// Newf creates a Kind-tagged error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind to an existing error, preserving it as the cause via
// github.com/pkg/errors so %+v logging still prints a stack trace.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: msg, err: errors.Wrap(err, msg)}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, msg: msg, err: errors.Wrap(err, msg)}
}

// Is reports whether err (or any error in its chain) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning Generic if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Generic
}
