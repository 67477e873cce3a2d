// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// Code is the closed error taxonomy shared by every privileged operation.
type Code string

const (
	InvalidArgument    Code = "invalid-argument"
	Unauthenticated    Code = "unauthenticated"
	PermissionDenied   Code = "permission-denied"
	FailedPrecondition Code = "failed-precondition"
	NotFound           Code = "not-found"
	AlreadyExists      Code = "already-exists"
	ResourceExhausted  Code = "resource-exhausted"
	Internal           Code = "internal"
)

// HTTPStatus maps a code to the status written by handlers.
func (c Code) HTTPStatus() int {
	switch c {
	case InvalidArgument, FailedPrecondition:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case ResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed, client-safe error. The wrapped cause is never serialized.
type Error struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches an internal cause that is logged but never sent to clients.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

// NewValidation wraps multiple field errors.
func NewValidation(fields map[string]string) *Error {
	return &Error{Code: InvalidArgument, Message: "Error de validacion", Fields: fields}
}

// Envelope is the canonical body for all 4xx/5xx HTTP responses.
type Envelope struct {
	OK    bool   `json:"ok"`
	Error *Error `json:"error"`
}

func Response(err *Error) Envelope {
	return Envelope{OK: false, Error: err}
}

// From classifies any error. Untyped errors become a generic internal error.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Wrap(Internal, "Error interno del servidor", err)
}

// CodeOf returns the taxonomy code of err, or Internal for untyped errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return From(err).Code
}
