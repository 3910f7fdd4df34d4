package common

import (
	"errors"
	"net/http"
)

// Error codes shared across feature packages. Validation errors are
// user-correctable; invalid input marks an integration bug; operation
// failures wrap persistence or media collaborator errors without leaking
// their internals.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeOperationFailed = "OPERATION_FAILED"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError flags a user-correctable payload problem. It is raised
// before any persistence call so a failed write never partially applies.
func ValidationError(message string) *AppError {
	return NewAppError(CodeValidation, message, http.StatusBadRequest, nil)
}

// InvalidInput flags a value that cannot be normalized safely, which
// indicates a programming or integration bug rather than a form error.
func InvalidInput(message string, err error) *AppError {
	return NewAppError(CodeInvalidInput, message, http.StatusBadRequest, err)
}

// NotFound flags an operation targeting an id with no matching record.
func NotFound(message string) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, nil)
}

// Conflict flags a uniqueness violation.
func Conflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict, nil)
}

// OperationFailed wraps a collaborator failure with a generic message.
// The cause stays attached for logging but is not rendered to callers.
func OperationFailed(message string, err error) *AppError {
	return NewAppError(CodeOperationFailed, message, http.StatusInternalServerError, err)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// AsAppError extracts an AppError, falling back to a generic wrapper so
// handlers always have a code and status to render.
func AsAppError(err error) *AppError {
	var target *AppError
	if errors.As(err, &target) {
		return target
	}
	return OperationFailed("operation failed", err)
}
