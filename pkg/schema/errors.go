package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeUnresolved    = "UNRESOLVED_REFERENCE"
	ErrCodeCycleDetected = "CYCLE_DETECTED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeFetchFailed   = "FETCH_FAILED"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeIO            = "IO_ERROR"
	ErrCodeCancelled     = "CANCELLED"
	ErrCodeEvaluation    = "EVALUATION_ERROR"
)

// Error is the structured error type shared by discovery, parsing and
// call-graph construction. Unresolved graph nodes carry one of these.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Path    string         `json:"path,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithPath attaches the file the error refers to.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of err if it is (or wraps) an *Error, "" otherwise.
func CodeOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
