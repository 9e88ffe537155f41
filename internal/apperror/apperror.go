// Package apperror defines the operational error taxonomy shared by
// the service layer. These errors are expected, user-facing, and carry
// a message reproduced verbatim to the caller; infrastructure failures
// are wrapped plain errors and map to an internal server error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an operational error.
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeConflict     Code = "CONFLICT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
)

// Error is an operational error with a classification and a
// human-readable message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates an operational error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an operational error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a CodeNotFound error.
func NotFound(message string) *Error { return New(CodeNotFound, message) }

// BadRequest creates a CodeBadRequest error.
func BadRequest(message string) *Error { return New(CodeBadRequest, message) }

// Conflict creates a CodeConflict error.
func Conflict(message string) *Error { return New(CodeConflict, message) }

// Unauthorized creates a CodeUnauthorized error.
func Unauthorized(message string) *Error { return New(CodeUnauthorized, message) }

// Forbidden creates a CodeForbidden error.
func Forbidden(message string) *Error { return New(CodeForbidden, message) }

// CodeOf extracts the classification from err, if it is (or wraps) an
// operational error.
func CodeOf(err error) (Code, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// HTTPStatus maps an error to the HTTP status it should produce.
// Non-operational errors map to 500.
func HTTPStatus(err error) int {
	code, ok := CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
