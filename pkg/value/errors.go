package value

import "fmt"

// ErrorKind classifies run-time errors.
type ErrorKind uint8

const (
	// TypeError: an operation applied to a value of the wrong shape.
	TypeError ErrorKind = iota + 1
	// IndexError: an out-of-range array position in an update.
	IndexError
	// UserError: raised by the error builtin.
	UserError
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case TypeError:
		return "TypeError"
	case IndexError:
		return "IndexError"
	case UserError:
		return "UserError"
	default:
		return "Error"
	}
}

// Error is a run-time error. Its payload is what `try ... catch` hands to
// the catch branch.
type Error struct {
	Kind    ErrorKind
	Payload Value
}

// Error implements the error interface.
func (e *Error) Error() string {
	if s, ok := e.Payload.(String); ok {
		return string(s)
	}
	return ToJSON(e.Payload) + " (not a string)"
}

// NewTypeError builds a TypeError with a formatted message payload.
func NewTypeError(format string, args ...any) *Error {
	return &Error{Kind: TypeError, Payload: String(fmt.Sprintf(format, args...))}
}

// NewIndexError builds an IndexError with a formatted message payload.
func NewIndexError(format string, args ...any) *Error {
	return &Error{Kind: IndexError, Payload: String(fmt.Sprintf(format, args...))}
}

// Thrown builds the error raised by `error(v)`.
func Thrown(v Value) *Error {
	return &Error{Kind: UserError, Payload: v}
}

// Describe renders v as "type (json)" for error messages, truncating long
// encodings.
func Describe(v Value) string {
	return fmt.Sprintf("%s (%s)", TypeName(v), Truncate(ToJSON(v)))
}

// Truncate shortens long encodings for messages.
func Truncate(s string) string {
	const limit = 30
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
