package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error is a service-level failure carrying the message shown to the caller.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Message: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Message: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }

func Validation(msg string, fields ...FieldError) error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// Internal wraps an infrastructure failure. The cause is logged, never shown.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf reports the kind of err, treating unknown errors as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
