// Package errors provides standardized error types for the request pipeline.
package errors

import (
	"errors"
	"fmt"
)

// Error codes covering the pipeline error taxonomy.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeNoMatch            = "NO_MATCH"
	CodeNeedsClarification = "NEEDS_CLARIFICATION"
	CodeUnsafeStatement    = "UNSAFE_STATEMENT"
	CodeUnsupportedPattern = "UNSUPPORTED_PATTERN"
	CodeSchemaUnavailable  = "SCHEMA_UNAVAILABLE"
	CodeExecutionFailed    = "EXECUTION_FAILED"
	CodeConnectionFailed   = "CONNECTION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// PipelineError represents a pipeline error with code, message, and optional details.
type PipelineError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a single detail to the error.
func (e *PipelineError) WithDetail(key string, value interface{}) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrNoMatch            = &PipelineError{Code: CodeNoMatch, Message: "no rule matched the request"}
	ErrNeedsClarification = &PipelineError{Code: CodeNeedsClarification, Message: "request matched but is missing a required detail"}
	ErrUnsafeStatement    = &PipelineError{Code: CodeUnsafeStatement, Message: "statement rejected by safety gate"}
	ErrUnsupportedPattern = &PipelineError{Code: CodeUnsupportedPattern, Message: "statement uses an unsupported pattern"}
	ErrSchemaUnavailable  = &PipelineError{Code: CodeSchemaUnavailable, Message: "schema context is unavailable"}
	ErrExecutionFailed    = &PipelineError{Code: CodeExecutionFailed, Message: "statement execution failed"}
	ErrSessionNotFound    = &PipelineError{Code: CodeNotFound, Message: "session not found"}
	ErrConnectionFailed   = &PipelineError{Code: CodeConnectionFailed, Message: "database connection failed"}
)

// New creates a new PipelineError with the given code and message.
func New(code, message string) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with a PipelineError.
func Wrap(err error, code, message string) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// GetCode extracts the error code from an error, or CodeInternal if it is
// not a PipelineError.
func GetCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}
