// Package errs defines the error model shared by the codec packages.
//
// Codecs return a typed *Error for structural failures, carrying the byte
// offset at which the problem was detected. Soft, recoverable problems
// (an unknown attribute in non-strict mode, a sprite that failed to read)
// are collected into a Diagnostics list returned next to the result.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates every failure class the codec core can report.
type Kind int

const (
	Io Kind = iota
	Truncated
	BadSignature
	UnknownVersion
	UnknownAttribute
	DuplicateID
	RangeViolation
	InvariantViolation
	SizeMismatch
	OffsetOutOfRange
	ValidationFailed
	UnsupportedOperation
	Cancelled
)

// String implements the stringer interface.
func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case Truncated:
		return "truncated"
	case BadSignature:
		return "bad signature"
	case UnknownVersion:
		return "unknown version"
	case UnknownAttribute:
		return "unknown attribute"
	case DuplicateID:
		return "duplicate id"
	case RangeViolation:
		return "range violation"
	case InvariantViolation:
		return "invariant violation"
	case SizeMismatch:
		return "size mismatch"
	case OffsetOutOfRange:
		return "offset out of range"
	case ValidationFailed:
		return "validation failed"
	case UnsupportedOperation:
		return "unsupported operation"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("kind %d unknown", int(k))
}

// NoOffset marks an error that is not tied to a position in a byte stream.
const NoOffset int64 = -1

// Error is the concrete error type returned by the codecs and the item
// model. Offset is the byte offset within the parsed stream, or NoOffset.
// Field is set for ValidationFailed errors only.
type Error struct {
	Kind   Kind
	Offset int64
	Field  string
	Msg    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s: field %q: %s", e.Kind, e.Field, e.Msg)
	case e.Offset != NoOffset:
		return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

// New constructs an error of the given kind with no stream offset.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: NoOffset, Msg: fmt.Sprintf(format, args...)}
}

// At constructs an error of the given kind tied to a byte offset.
func At(kind Kind, offset int64, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// Validation constructs a ValidationFailed error for the named field.
func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: ValidationFailed, Offset: NoOffset, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, looking through pkg/errors wrap chains.
// The second return is false when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	if err == nil {
		return 0, false
	}
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Severity of a diagnostic entry.
type Severity int

const (
	Info Severity = iota
	Warning
)

// String implements the stringer interface.
func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "info"
}

// Diagnostic is a soft, non-fatal finding collected during an otherwise
// successful operation.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Offset   int64
	Message  string
}

// String implements the stringer interface.
func (d Diagnostic) String() string {
	if d.Offset != NoOffset {
		return fmt.Sprintf("%s: %s at offset %d: %s", d.Severity, d.Kind, d.Offset, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Kind, d.Message)
}

// Diagnostics accumulates soft findings; the zero value is ready for use.
type Diagnostics []Diagnostic

// Warnf appends a warning-severity diagnostic.
func (d *Diagnostics) Warnf(kind Kind, offset int64, format string, args ...interface{}) {
	*d = append(*d, Diagnostic{Severity: Warning, Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)})
}

// Infof appends an info-severity diagnostic.
func (d *Diagnostics) Infof(kind Kind, offset int64, format string, args ...interface{}) {
	*d = append(*d, Diagnostic{Severity: Info, Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)})
}

// HasKind reports whether any collected diagnostic carries the given kind.
func (d Diagnostics) HasKind(kind Kind) bool {
	for _, diag := range d {
		if diag.Kind == kind {
			return true
		}
	}
	return false
}
