// Package errors defines the error kinds shared by the REST API, the
// websocket protocol, and the realtime core. Handlers classify a failure by
// wrapping one of these sentinels; the outer layers only ever inspect the
// kind, never the wrapped detail.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBadRequest    = fmt.Errorf("bad request")
	ErrUnauthorized  = fmt.Errorf("unauthorized")
	ErrForbidden     = fmt.Errorf("forbidden")
	ErrNotFound      = fmt.Errorf("not found")
	ErrAlreadyExists = fmt.Errorf("already exists")
	ErrInternal      = fmt.Errorf("internal server error")

	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no censored words loaded")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)

// Kind reduces any error to one of the six public sentinels. Unclassified
// errors are storage or programming failures and collapse to ErrInternal so
// their detail never leaks to a client.
func Kind(err error) error {
	for _, kind := range []error{
		ErrBadRequest,
		ErrUnauthorized,
		ErrForbidden,
		ErrNotFound,
		ErrAlreadyExists,
		ErrInternal,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// HTTPStatus maps an error kind to the REST status code.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WireType maps an error kind to the errortype field of a websocket Error
// frame.
func WireType(err error) string {
	switch Kind(err) {
	case ErrBadRequest:
		return "BadRequest"
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrForbidden:
		return "Forbidden"
	case ErrNotFound:
		return "NotFound"
	case ErrAlreadyExists:
		return "AlreadyExists"
	default:
		return "InternalServerError"
	}
}
