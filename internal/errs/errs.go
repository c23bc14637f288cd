// Package errs defines the error-kind taxonomy the core reports through.
//
// Every error the core returns to a caller is tagged with a Kind so that
// callers can distinguish a no-op validation failure from a fatal resource
// or collective failure without parsing messages. The message text itself
// still carries a github.com/pkg/errors stack trace, since that is the
// wrapping idiom used throughout this module.
package errs

import "github.com/pkg/errors"

// Kind classifies an error the way §7 of the design describes.
type Kind int

const (
	// ShapeMismatch: index maps disagree on length, or symmetry groups are
	// inconsistent between operands. The operation is a no-op.
	ShapeMismatch Kind = iota
	// ResourceExhausted: arena or heap allocation failed. Fatal.
	ResourceExhausted
	// CollectiveFailure: the message-passing layer failed a redistribution
	// or reduction. Fatal; the tensor involved is poisoned.
	CollectiveFailure
	// InvalidInput: unknown reduction op, index string length mismatching
	// order, write with unsorted duplicate keys whose values disagree.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case ShapeMismatch:
		return "shape_mismatch"
	case ResourceExhausted:
		return "resource_exhausted"
	case CollectiveFailure:
		return "collective_failure"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

// New creates a Kind-tagged error from a format string.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, err: errors.Errorf(format, args...)}
}

// Wrap attaches a Kind to an existing error, preserving its stack trace.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, err: errors.Wrap(err, message)}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}

// Fatal reports whether a Kind must abort the process rather than surface
// as a recoverable per-operation status.
func Fatal(kind Kind) bool {
	return kind == ResourceExhausted || kind == CollectiveFailure
}
