// Package apperr defines the error kinds returned by the core operations.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can pick a status code.
type Kind string

const (
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindForbidden        Kind = "FORBIDDEN"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindCapacityExceeded Kind = "CAPACITY_EXCEEDED"
	KindModuleDisabled   Kind = "MODULE_DISABLED"
	KindBadInput         Kind = "BAD_INPUT"
	KindInternal         Kind = "INTERNAL"
)

// Error is a user-facing failure. Message is safe to show to callers; Err is
// kept for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func CapacityExceeded(message string) *Error {
	return New(KindCapacityExceeded, message)
}

func ModuleDisabled(message string) *Error {
	return New(KindModuleDisabled, message)
}

func BadInput(message string) *Error {
	return New(KindBadInput, message)
}

// Internal hides the cause behind a generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
