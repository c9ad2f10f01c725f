package models

import "net/http"

// AppError is the error type of every controller operation. The API
// renders it as {"error": Code, "message": Message, "field": Field} with
// HTTP status Status.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

func newAppError(status int, code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Status: status}
}

func ErrNotFound(msg string) *AppError {
	return newAppError(http.StatusNotFound, "NOT_FOUND", msg)
}

func ErrBadRequest(msg string) *AppError {
	return newAppError(http.StatusBadRequest, "BAD_REQUEST", msg)
}

// ErrInvalidField names the offending request field.
func ErrInvalidField(field, msg string) *AppError {
	e := newAppError(http.StatusBadRequest, "BAD_REQUEST", msg)
	e.Field = field
	return e
}

func ErrUnauthorized(msg string) *AppError {
	return newAppError(http.StatusUnauthorized, "UNAUTHORIZED", msg)
}

func ErrForbidden(msg string) *AppError {
	return newAppError(http.StatusForbidden, "FORBIDDEN", msg)
}

// ErrConflict reports a device in a transient state, such as a radio
// being removed.
func ErrConflict(msg string) *AppError {
	return newAppError(http.StatusConflict, "CONFLICT", msg)
}

// ErrUnavailable reports a device that is not attached.
func ErrUnavailable(msg string) *AppError {
	return newAppError(http.StatusServiceUnavailable, "UNAVAILABLE", msg)
}

func ErrInternal(msg string) *AppError {
	return newAppError(http.StatusInternalServerError, "INTERNAL", msg)
}
