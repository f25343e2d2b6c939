package rpc

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/launchpad-web/launchpad/internal/platform/httpx"
)

// Stable codes attached to classified failures.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeBadRequest   = "BAD_REQUEST"
)

const internalMessage = "internal server error"

// Failure is the error half of the wire envelope.
type Failure struct {
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	HTTPStatus int    `json:"httpStatus"`
	Path       string `json:"path"`
}

// Classify maps any procedure error onto the wire failure. Only the
// authentication, authorization and validation classes carry a code;
// unclassified errors never expose their message.
func Classify(path string, err error) Failure {
	f := Failure{Path: path}
	switch {
	case errors.Is(err, httpx.ErrUnauthorized):
		f.HTTPStatus, f.Code = http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, httpx.ErrForbidden):
		f.HTTPStatus, f.Code = http.StatusForbidden, CodeForbidden
	case errors.Is(err, httpx.ErrValidation):
		f.HTTPStatus, f.Code = http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, httpx.ErrNotFound):
		f.HTTPStatus = http.StatusNotFound
	case errors.Is(err, httpx.ErrDuplicate):
		f.HTTPStatus = http.StatusConflict
	default:
		var httpErr *httpx.Error
		if errors.As(err, &httpErr) && httpErr.Status >= 400 && httpErr.Status < 500 {
			f.HTTPStatus = httpErr.Status
		} else {
			f.HTTPStatus = http.StatusInternalServerError
		}
	}
	if f.HTTPStatus >= http.StatusInternalServerError {
		f.Message = internalMessage
	} else {
		f.Message = err.Error()
	}
	return f
}

// RemoteError is a failure returned by a remote procedure call.
type RemoteError struct {
	Failure
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rpc %s: %s (%s)", e.Path, e.Message, e.Code)
	}
	return fmt.Sprintf("rpc %s: %s", e.Path, e.Message)
}

// Is lets callers match remote failures against the httpx sentinels.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case httpx.ErrUnauthorized:
		return e.Code == CodeUnauthorized
	case httpx.ErrForbidden:
		return e.Code == CodeForbidden
	case httpx.ErrValidation:
		return e.Code == CodeBadRequest
	case httpx.ErrNotFound:
		return e.HTTPStatus == http.StatusNotFound
	case httpx.ErrDuplicate:
		return e.HTTPStatus == http.StatusConflict
	}
	return false
}
