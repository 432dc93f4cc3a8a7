package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type used across ctxrank.
// Most runtime failures are absorbed by the engine; the ones that escape
// (caller precondition violations, configuration problems) carry a code so
// callers can branch on them with errors.Is.
type Error struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_INPUT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Index, Validation, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Absorbed marks failures the engine degrades on instead of returning.
	Absorbed bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code, so errors.Is(err, &Error{Code: ...}) works.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and the absorbed flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
		Absorbed: isAbsorbedCode(code),
	}
}

// Wrap creates an Error from an existing error.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IndexUnavailable reports a failed or timed-out vector index call.
func IndexUnavailable(message string, cause error) *Error {
	return New(ErrCodeIndexUnavailable, message, cause)
}

// MalformedMetadata reports a hit whose metadata could not be decoded.
func MalformedMetadata(message string, cause error) *Error {
	return New(ErrCodeMalformedMetadata, message, cause)
}

// ValidationError creates a caller precondition error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsAbsorbed reports whether the engine should degrade on err rather than
// return it to the caller.
func IsAbsorbed(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Absorbed
	}
	return false
}

// GetCode extracts the error code. Returns empty string for foreign errors.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category. Returns empty string for foreign errors.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}
