package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/fmal/impact/pkg/reactive"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
	CategoryRuntime Category = "runtime"
	CategoryServer  Category = "server"
)

// Error is a structured error with a code, an explanation and a hint.
type Error struct {
	// Code is a unique error identifier (e.g., "E100").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in an Error. Runtime failures are
// classified by their reactive sentinel; an *Error is returned as is.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	var pe *reactive.PanicError
	switch {
	case stderrors.Is(err, reactive.ErrBudgetExceeded):
		code = "E300"
	case stderrors.Is(err, reactive.ErrCircularDependency):
		code = "E302"
	case stderrors.Is(err, reactive.ErrWriteInDerivation):
		code = "E303"
	case stderrors.As(err, &pe):
		code = "E304"
	}
	return New(code).Wrap(err)
}

// template defines a registered error type.
type template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]template{
	// Configuration (E100-E199)
	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No impact.json or impact.yaml was found in the given directory.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .yaml or .yml.",
	},

	// CLI (E200-E299)
	"E200": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
	},
	"E201": {
		Category: CategoryCLI,
		Message:  "Graph edge check failed",
		Detail:   "A dependency edge is missing its reverse subscriber entry, or the reverse.",
	},

	// Runtime (E300-E399)
	"E300": {
		Category: CategoryRuntime,
		Message:  "Run budget exceeded",
		Detail:   "Effects kept re-triggering each other within one flush. The remaining queue was dropped.",
	},
	"E301": {
		Category: CategoryRuntime,
		Message:  "Effect failed",
	},
	"E302": {
		Category: CategoryRuntime,
		Message:  "Circular dependency",
		Detail:   "A computed value read itself, directly or through other computeds.",
	},
	"E303": {
		Category: CategoryRuntime,
		Message:  "Write during derivation",
		Detail:   "Computed values must not write signals. Move the write into an effect.",
	},
	"E304": {
		Category: CategoryRuntime,
		Message:  "Panic in reactive callback",
	},

	// Server (E400-E499)
	"E400": {
		Category: CategoryServer,
		Message:  "Server failed",
	},
}

// Registered reports whether code has a template.
func Registered(code string) bool {
	_, ok := registry[code]
	return ok
}
