package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NotFound indicates a file or repository does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// DeleteMismatch indicates a delete's expected line text did not match
	DeleteMismatch ErrorCode = "DELETE_MISMATCH"
	// VersionConflict indicates the file changed since its version token was read
	VersionConflict ErrorCode = "VERSION_CONFLICT"
	// FileNotFoundForDeletion indicates delete_file targeted a missing file
	FileNotFoundForDeletion ErrorCode = "FILE_NOT_FOUND_FOR_DELETION"
	// InvalidEdit indicates a structurally unusable edit
	InvalidEdit ErrorCode = "INVALID_EDIT"
	// TransportFailure indicates network, auth or rate-limit failures from a collaborator
	TransportFailure ErrorCode = "TRANSPORT_FAILURE"
	// AIUnavailable indicates the suggestion service could not answer
	AIUnavailable ErrorCode = "AI_UNAVAILABLE"
	// BadRequest indicates a malformed API request
	BadRequest ErrorCode = "BAD_REQUEST"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AppError carries a stable code alongside the message and cause.
type AppError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// NewAppError creates a new AppError
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first AppError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return InternalError
}

// IsPerFile reports whether a code only affects the file it occurred on.
// Anything else aborts the whole request.
func IsPerFile(code ErrorCode) bool {
	switch code {
	case DeleteMismatch, VersionConflict, FileNotFoundForDeletion, InvalidEdit:
		return true
	default:
		return false
	}
}
