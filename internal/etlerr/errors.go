// Package etlerr classifies the fatal failures of a pipeline run.
//
// Row-level problems are never errors; they are recorded as drops in the
// run log. Everything that aborts a run (or the load phase of a run) is an
// *Error carrying one of the kinds below so callers can tell them apart
// with errors.Is or KindOf.
package etlerr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a fatal failure.
type Kind int

const (
	// Unknown is returned by KindOf for errors not produced by this package.
	Unknown Kind = iota
	// SourceUnavailable means an input could not be read at all.
	SourceUnavailable
	// DestinationUnavailable means the destination store could not be
	// reached, authenticated or written.
	DestinationUnavailable
	// ConfigurationError means the run configuration is contradictory or
	// missing required values.
	ConfigurationError
)

func (k Kind) String() string {
	switch k {
	case SourceUnavailable:
		return "source unavailable"
	case DestinationUnavailable:
		return "destination unavailable"
	case ConfigurationError:
		return "configuration error"
	default:
		return "unknown"
	}
}

// Error is a classified fatal error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels for errors.Is checks.
var (
	ErrSourceUnavailable      = &Error{Kind: SourceUnavailable}
	ErrDestinationUnavailable = &Error{Kind: DestinationUnavailable}
	ErrConfiguration          = &Error{Kind: ConfigurationError}
)

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel (or any *Error) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Err == nil || t.Err == e.Err)
}

// New wraps err with a kind and the operation that failed.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Source is shorthand for New(SourceUnavailable, ...).
func Source(op string, err error) error { return New(SourceUnavailable, op, err) }

// Destination is shorthand for New(DestinationUnavailable, ...).
func Destination(op string, err error) error { return New(DestinationUnavailable, op, err) }

// Config is shorthand for a ConfigurationError with a formatted message.
func Config(format string, args ...any) error {
	return New(ConfigurationError, "", fmt.Errorf(format, args...))
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
