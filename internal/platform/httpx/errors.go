// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Category sentinels. Domain errors wrap one of them so RespondError can pick
// the status code.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// Error pairs a category sentinel with the message shown to clients.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// NotFound builds an error answered with 404.
func NotFound(msg string) error { return &Error{kind: ErrNotFound, msg: msg} }

// Validation builds an error answered with 400.
func Validation(msg string) error { return &Error{kind: ErrValidation, msg: msg} }

// Forbidden builds an error answered with 403.
func Forbidden(msg string) error { return &Error{kind: ErrForbidden, msg: msg} }

// StatusFor maps an error onto the status code RespondError would use.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as a message body. Unclassified errors become 500
// and carry the raw error text.
func RespondError(w http.ResponseWriter, err error) {
	Message(w, StatusFor(err), err.Error())
}
