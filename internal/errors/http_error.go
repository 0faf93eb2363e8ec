package errors

import "net/http"

// HTTPError represents a business-rule failure with an associated HTTP status
// code and a stable machine-readable code, so callers can tell "upgrade your
// plan" apart from "pick a different slot" without parsing the message.
type HTTPError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given status, code and message.
func NewHTTPError(status int, code, message string) *HTTPError {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Helpers for the common error categories.
func NotFound(msg string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, "not_found", msg)
}

func Conflict(msg string) *HTTPError {
	return NewHTTPError(http.StatusConflict, "conflict", msg)
}

func InvalidTransition(msg string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, "invalid_transition", msg)
}

func Expired(msg string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, "expired", msg)
}

func AccessDenied(msg string) *HTTPError {
	return NewHTTPError(http.StatusForbidden, "access_denied", msg)
}

func Validation(msg string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, "validation_error", msg)
}

func Unauthorized(msg string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, "unauthorized", msg)
}
