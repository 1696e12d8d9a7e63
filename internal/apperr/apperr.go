// Package apperr carries the error taxonomy shared by the business core:
// every rejected input maps to a stable, user-visible message plus a
// machine-readable kind the transport layer translates to a status code.
package apperr

import "errors"

// Kind classifies an error for the transport layer.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindBadRequest Kind = "BAD_REQUEST"
	KindConflict   Kind = "CONFLICT"
	KindInternal   Kind = "INTERNAL"
)

// Error is a kinded error with a stable message. Messages are part of the
// API contract; do not reword them without a migration note.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Is lets two kinded errors with the same kind and message match through
// errors.Is, so contract errors behave like sentinels.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && other.Message == e.Message
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// BadRequestFrom wraps a validation failure, keeping its message visible
// while preserving the cause for errors.Is/errors.As checks.
func BadRequestFrom(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindBadRequest, Message: err.Error(), cause: err}
}

// KindOf extracts the kind, defaulting to KindInternal for plain errors.
func KindOf(err error) Kind {
	var kinded *Error
	if errors.As(err, &kinded) {
		return kinded.Kind
	}
	return KindInternal
}
