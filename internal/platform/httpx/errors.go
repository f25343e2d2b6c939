// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

// Error is a classified failure carrying the HTTP status and a stable,
// caller-visible code. The wrapped error decides the class for errors.Is.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// NewError builds a classified error.
func NewError(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Forbidden returns a 403 error with the given code.
func Forbidden(code string) *Error {
	return NewError(http.StatusForbidden, code, "Forbidden!", ErrForbidden)
}

// Unauthorized returns a 401 error with the given code.
func Unauthorized(code string) *Error {
	return NewError(http.StatusUnauthorized, code, "Unauthorized!", ErrUnauthorized)
}

// Internal returns a 500 error with the given code.
func Internal(code string) *Error {
	return NewError(http.StatusInternalServerError, code, code, ErrInternal)
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var classified *Error
	if errors.As(err, &classified) {
		detail := ""
		if classified.Status < http.StatusInternalServerError {
			detail = classified.Error()
		}
		Write(w, ProblemDetail{
			Title:  http.StatusText(classified.Status),
			Status: classified.Status,
			Code:   classified.Code,
			Detail: detail,
		})
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
