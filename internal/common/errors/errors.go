// Package errors provides standardized error handling for the render worker protocol.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Per-command failures. None of these terminate the worker.
	ErrCodeMalformedCommand  ErrorCode = "MALFORMED_COMMAND"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeResourceNotFound  ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeTransformFailed   ErrorCode = "TRANSFORM_FAILED"
	ErrCodeOutputWriteFailed ErrorCode = "OUTPUT_WRITE_FAILED"
	ErrCodeUnknownAction     ErrorCode = "UNKNOWN_ACTION"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"

	// Process-level failures. The worker exits non-zero after reporting them.
	ErrCodeInitializationFailed ErrorCode = "INITIALIZATION_FAILED"
	ErrCodeFatalLoopFailure     ErrorCode = "FATAL_LOOP_FAILURE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Diagnostic string                 `json:"diagnostic,omitempty"`
	Fatal      bool                   `json:"fatal"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Err        error                  `json:"-"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Err
}

// ==========================
// 2. Error Constructors
// ==========================

// NewMalformedCommandError reports an input line that could not be decoded.
func NewMalformedCommandError(err error) *StandardError {
	return &StandardError{
		Code:       ErrCodeMalformedCommand,
		Message:    fmt.Sprintf("Invalid JSON: %s", err.Error()),
		Details:    err.Error(),
		Diagnostic: err.Error(),
		Timestamp:  time.Now().UTC(),
		Err:        err,
	}
}

// NewValidationFailedError reports missing required command fields.
func NewValidationFailedError(required, missing []string) *StandardError {
	return &StandardError{
		Code: ErrCodeValidationFailed,
		Message: fmt.Sprintf("Missing required parameters: %s (missing: %s)",
			joinOr(required), strings.Join(missing, ", ")),
		Details:   fmt.Sprintf("missing: %s", strings.Join(missing, ",")),
		Metadata:  map[string]interface{}{"missing": missing},
		Timestamp: time.Now().UTC(),
	}
}

// NewResourceNotFoundError reports a named input file that does not exist.
func NewResourceNotFoundError(kind, path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResourceNotFound,
		Message:   fmt.Sprintf("%s file not found: %s", kind, path),
		Details:   fmt.Sprintf("path: %s", path),
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
	}
}

// NewTransformFailedError reports an engine failure. cause is a short
// classification of the failure, diagnostic the engine's full output.
func NewTransformFailedError(cause string, err error, diagnostic string) *StandardError {
	msg := fmt.Sprintf("PDF generation failed: %s", err.Error())
	if cause != "" {
		msg = fmt.Sprintf("PDF generation failed (%s): %s", cause, err.Error())
	}
	return &StandardError{
		Code:       ErrCodeTransformFailed,
		Message:    msg,
		Details:    err.Error(),
		Diagnostic: diagnostic,
		Metadata:   map[string]interface{}{"cause": cause},
		Timestamp:  time.Now().UTC(),
		Err:        err,
	}
}

// NewOutputWriteFailedError reports that rendered bytes could not be persisted.
func NewOutputWriteFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:       ErrCodeOutputWriteFailed,
		Message:    fmt.Sprintf("Failed to write output file %s: %s", path, err.Error()),
		Details:    err.Error(),
		Diagnostic: err.Error(),
		Metadata:   map[string]interface{}{"path": path},
		Timestamp:  time.Now().UTC(),
		Err:        err,
	}
}

// NewUnknownActionError reports an action tag with no registered handler.
func NewUnknownActionError(action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownAction,
		Message:   fmt.Sprintf("Unknown action: %s", action),
		Details:   fmt.Sprintf("action: %s", action),
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps a recovered panic or an unexpected handler error.
func NewInternalError(message, diagnostic string) *StandardError {
	return &StandardError{
		Code:       ErrCodeInternal,
		Message:    fmt.Sprintf("Command processing error: %s", message),
		Details:    message,
		Diagnostic: diagnostic,
		Timestamp:  time.Now().UTC(),
	}
}

// NewInitializationFailedError reports an engine that could not be set up.
func NewInitializationFailedError(err error) *StandardError {
	return &StandardError{
		Code:       ErrCodeInitializationFailed,
		Message:    fmt.Sprintf("Fatal error: %s", err.Error()),
		Details:    err.Error(),
		Diagnostic: fmt.Sprintf("%+v", err),
		Fatal:      true,
		Timestamp:  time.Now().UTC(),
		Err:        err,
	}
}

// NewFatalLoopFailureError reports a failure of the read loop itself.
func NewFatalLoopFailureError(err error) *StandardError {
	return &StandardError{
		Code:       ErrCodeFatalLoopFailure,
		Message:    fmt.Sprintf("Fatal error: %s", err.Error()),
		Details:    err.Error(),
		Diagnostic: fmt.Sprintf("%+v", err),
		Fatal:      true,
		Timestamp:  time.Now().UTC(),
		Err:        err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsFatalErrorCode reports whether the code terminates the worker.
func IsFatalErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeInitializationFailed, ErrCodeFatalLoopFailure:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeMalformedCommand, ErrCodeUnknownAction:
		return "PROTOCOL"
	case ErrCodeValidationFailed:
		return "VALIDATION"
	case ErrCodeResourceNotFound, ErrCodeOutputWriteFailed:
		return "FILESYSTEM"
	case ErrCodeTransformFailed:
		return "ENGINE"
	case ErrCodeInitializationFailed, ErrCodeFatalLoopFailure:
		return "LIFECYCLE"
	default:
		return "OTHER"
	}
}

func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", or " + items[len(items)-1]
	}
}
