package handler

import (
	"errors"
	"net/http"

	"github.com/zots0127/filedrop/internal/domain/repository"
)

// ErrorKind classifies a failed request
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBadRequest
	KindNotFound
)

// StatusCode maps the kind to its HTTP status
func (k ErrorKind) StatusCode() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// RequestError is returned by handlers and rendered by a single adapter.
// Message is sent to the client; Err stays in the logs.
type RequestError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// BadRequest creates a 400 error
func BadRequest(message string, err error) *RequestError {
	return &RequestError{Kind: KindBadRequest, Message: message, Err: err}
}

// NotFound creates a 404 error
func NotFound(err error) *RequestError {
	return &RequestError{Kind: KindNotFound, Message: "File not found", Err: err}
}

// Internal creates a 500 error with a generic body
func Internal(err error) *RequestError {
	return &RequestError{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// classify converts any handler error into a RequestError
func classify(err error) *RequestError {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(err)
	case errors.Is(err, repository.ErrBadRequest):
		return BadRequest("Bad request", err)
	default:
		return Internal(err)
	}
}
