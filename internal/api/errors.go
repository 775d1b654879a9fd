package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"repoedit/internal/apply"
	"repoedit/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, status int) {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(apply.CodeOf(err)),
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		resp.Details = appErr.Details
	}

	WriteJSON(w, resp, status)
}

// WriteAppError writes err with its status derived from the error code.
func WriteAppError(w http.ResponseWriter, err error) {
	WriteError(w, err, MapErrorToStatus(apply.CodeOf(err)))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.NotFound:
		return http.StatusNotFound // 404
	case errors.FileNotFoundForDeletion:
		return http.StatusNotFound // 404
	case errors.DeleteMismatch:
		return http.StatusUnprocessableEntity // 422
	case errors.InvalidEdit:
		return http.StatusUnprocessableEntity // 422
	case errors.VersionConflict:
		return http.StatusConflict // 409
	case errors.BadRequest:
		return http.StatusBadRequest // 400
	case errors.TransportFailure:
		return http.StatusBadGateway // 502
	case errors.AIUnavailable:
		return http.StatusServiceUnavailable // 503
	case errors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.NewAppError(errors.BadRequest, message, nil), http.StatusBadRequest)
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, errors.NewAppError(errors.NotFound, message, nil), http.StatusNotFound)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string, err error) {
	WriteError(w, errors.NewAppError(errors.InternalError, message, err), http.StatusInternalServerError)
}

// MethodNotAllowed writes a 405 with the allowed method.
func MethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	WriteError(w, errors.NewAppError(errors.BadRequest, "method not allowed", nil), http.StatusMethodNotAllowed)
}
