package types

import "fmt"

// ErrorCode identifies a class of compile-time or engine error.
type ErrorCode string

const (
	// S01xx: lexical errors
	ErrStringNotClosed   ErrorCode = "S0101"
	ErrNumberOutOfRange  ErrorCode = "S0102"
	ErrUnsupportedEscape ErrorCode = "S0103"
	ErrUnexpectedEnd     ErrorCode = "S0104"
	ErrInvalidCharacter  ErrorCode = "S0105"

	// S02xx: syntax errors
	ErrSyntaxError      ErrorCode = "S0201"
	ErrExpectedToken    ErrorCode = "S0202"
	ErrExpectedKeyword  ErrorCode = "S0203"
	ErrInvalidPattern   ErrorCode = "S0204"
	ErrNestingTooDeep   ErrorCode = "S0205"
	ErrInvalidDirective ErrorCode = "S0206"

	// C01xx: name resolution
	ErrUndefinedVariable ErrorCode = "C0101"
	ErrUndefinedFunction ErrorCode = "C0102"
	ErrUndefinedLabel    ErrorCode = "C0103"
	ErrArityMismatch     ErrorCode = "C0104"

	// C02xx: assignment targets
	ErrNotAPath ErrorCode = "C0201"

	// C03xx: modules
	ErrModuleNotFound ErrorCode = "C0301"
	ErrModuleInvalid  ErrorCode = "C0302"

	// D0xxx: evaluation limits
	ErrStackOverflow ErrorCode = "D3020"
	ErrTimeout       ErrorCode = "D3030"
)

// Error represents a structured parse, compile or engine error.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	Err      error
}

// NewError creates a new error.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// IsCompileError reports whether code belongs to the compile-time classes
// (syntax, resolution, assignment targets, modules).
func (c ErrorCode) IsCompileError() bool {
	return len(c) > 0 && (c[0] == 'S' || c[0] == 'C')
}
