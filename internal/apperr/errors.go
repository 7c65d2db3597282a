package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so the HTTP layer can pick a status code
// without matching on message text.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindUpstream   Kind = "upstream"
	KindUnhandled  Kind = "unhandled"
)

// Error is the structured error carried across service boundaries.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Cause returns the underlying error text, or "" when there is none.
func (e *Error) Cause() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

func NotFound(op, msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: msg, Err: err}
}

func Conflict(op, msg string, err error) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: msg, Err: err}
}

func Upstream(op, msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Message: msg, Err: err}
}

func Unhandled(op string, err error) *Error {
	return &Error{Kind: KindUnhandled, Op: op, Message: "unexpected error occurred", Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error are unhandled.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnhandled
}

// As returns err as *Error, wrapping foreign errors as unhandled.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unhandled("", err)
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
