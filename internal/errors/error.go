package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryUsage   Category = "usage"
	CategoryConfig  Category = "config"
	CategoryAsset   Category = "asset"
	CategoryRouting Category = "routing"
	CategoryCLI     Category = "cli"
)

// SSRError is a structured error with a code, explanation and fix suggestion.
type SSRError struct {
	// Code is a unique error identifier (e.g., "E201").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail names the offending value and what was expected instead.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SSRError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SSRError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an SSRError with the same code.
func (e *SSRError) Is(target error) bool {
	t, ok := target.(*SSRError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithDetail adds a detailed explanation to the error.
func (e *SSRError) WithDetail(d string) *SSRError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detail to the error.
func (e *SSRError) WithDetailf(format string, args ...any) *SSRError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *SSRError) WithSuggestion(s string) *SSRError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *SSRError) Wrap(err error) *SSRError {
	e.Wrapped = err
	return e
}

// New creates an SSRError from a registered error code.
func New(code string) *SSRError {
	template, ok := registry[code]
	if !ok {
		return &SSRError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SSRError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new SSRError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SSRError {
	return &SSRError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an SSRError.
func FromError(err error, code string) *SSRError {
	if err == nil {
		return nil
	}
	var se *SSRError
	if stderrors.As(err, &se) {
		return se
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err, or any error it wraps, carries code.
func HasCode(err error, code string) bool {
	var se *SSRError
	for err != nil {
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Wrapped
	}
	return false
}

// IsUsage reports whether err is a programmer-facing usage error.
func IsUsage(err error) bool {
	var se *SSRError
	return stderrors.As(err, &se) && se.Category == CategoryUsage
}
