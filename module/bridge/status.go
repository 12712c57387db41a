package bridge

import (
	"errors"
	"net/http"

	"github.com/witnessnet/witnessnet/module"
)

// StatusError is an error with the HTTP status and kind reported to the client.
type StatusError interface {
	error
	Status() int
	Kind() string
	UserMessage() string
}

type restError struct {
	status  int
	kind    string
	message string
	err     error
}

func (e *restError) Error() string {
	return e.err.Error()
}

func (e *restError) Unwrap() error {
	return e.err
}

func (e *restError) Status() int {
	return e.status
}

func (e *restError) Kind() string {
	return e.kind
}

func (e *restError) UserMessage() string {
	return e.message
}

func NewBadRequestError(err error) StatusError {
	return &restError{status: http.StatusBadRequest, kind: kindBadRequest, message: err.Error(), err: err}
}

func NewNotFoundError(msg string, err error) StatusError {
	return &restError{status: http.StatusNotFound, kind: kindNotFound, message: msg, err: err}
}

// statusFromModuleError maps the errors returned by Module.Query to a response status.
func statusFromModuleError(err error) StatusError {
	var se StatusError
	if errors.As(err, &se) {
		return se
	}

	wrap := func(status int, kind string) StatusError {
		return &restError{status: status, kind: kind, message: err.Error(), err: err}
	}
	switch {
	case errors.Is(err, module.ErrNotStarted):
		return wrap(http.StatusServiceUnavailable, kindNotStarted)
	case errors.Is(err, module.ErrMissingQuery):
		return wrap(http.StatusBadRequest, kindMissingQuery)
	case errors.Is(err, module.ErrMalformedQuery):
		return wrap(http.StatusBadRequest, kindMalformedQuery)
	case module.IsNotQueryableError(err):
		return wrap(http.StatusForbidden, kindNotQueryable)
	default:
		return &restError{status: http.StatusInternalServerError, kind: kindInternal, message: "internal server error", err: err}
	}
}
