// Package apperr defines the application error taxonomy.
//
// Every error that crosses a service boundary is an *Error carrying a stable
// short code, an HTTP status, and a human-readable message. Handlers map these
// directly to the JSON error response; anything that is not an *Error is
// reported as a generic internal failure without leaking detail.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes.
const (
	CodeValidation      = "validation_failed"
	CodeNotFound        = "not_found"
	CodeConflict        = "name_conflict"
	CodeForbidden       = "forbidden"
	CodeUnauthorized    = "unauthorized"
	CodePayloadTooLarge = "payload_too_large"
	CodeSizeMismatch    = "size_mismatch"
	CodeDependency      = "dependency_failed"
	CodeInternal        = "internal_error"
)

type Error struct {
	Code    string
	Status  int
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is makes two *Error values match on code, so services can compare against
// the package constructors with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap attaches a cause without changing code, status, or message.
func (e *Error) Wrap(err error) *Error {
	return &Error{Code: e.Code, Status: e.Status, Message: e.Message, err: err}
}

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Status: http.StatusConflict, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

func PayloadTooLarge(message string) *Error {
	return &Error{Code: CodePayloadTooLarge, Status: http.StatusRequestEntityTooLarge, Message: message}
}

func SizeMismatch(message string) *Error {
	return &Error{Code: CodeSizeMismatch, Status: http.StatusBadRequest, Message: message}
}

func Dependency(message string, err error) *Error {
	return &Error{Code: CodeDependency, Status: http.StatusBadGateway, Message: message, err: err}
}

func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "something went wrong", err: err}
}

// From extracts the *Error from err, or wraps err as an internal failure.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
