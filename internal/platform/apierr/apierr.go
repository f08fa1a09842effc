package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to handlers and asserted on by callers.
const (
	CodeUnavailable     = "unavailable"
	CodeNotFound        = "not_found"
	CodeInvalidArgument = "invalid_argument"
	CodeDuplicateEntity = "duplicate_entity"
	CodeConflict        = "conflict"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Unavailable marks a retryable infrastructure failure (store, embedder or
// graph source unreachable).
func Unavailable(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeUnavailable, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func InvalidArgument(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidArgument, err)
}

// DuplicateEntity is internal to the catalog get-or-insert path; it is caught
// and converted into a re-resolve, never returned to API callers.
func DuplicateEntity(err error) *Error {
	return New(http.StatusConflict, CodeDuplicateEntity, err)
}

func IsCode(err error, code string) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}

func CodeOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return apiErr.Code
	}
	return "internal"
}
