// internal/common/errors/handler.go
package errors

import (
	stderrors "errors"
	"time"
)

// ErrorHandler normalises command failures and logs them in one place.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleCommandError turns any error raised while handling one command into
// a StandardError and logs it with the command's correlation token.
func (h *ErrorHandler) HandleCommandError(action string, requestID int, err error) *StandardError {
	stdErr := Normalize(err)
	h.logError(action, requestID, stdErr)
	return stdErr
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:       ErrCodeInternal,
		Message:    "Command processing error: " + err.Error(),
		Details:    err.Error(),
		Diagnostic: err.Error(),
		Timestamp:  time.Now().UTC(),
		Err:        err,
	}
}

func (h *ErrorHandler) logError(action string, requestID int, stdErr *StandardError) {
	if h.logger == nil {
		return
	}
	h.logger.Error("Command failed", map[string]interface{}{
		"action":        action,
		"requestId":     requestID,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"fatal":         stdErr.Fatal,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
}
