package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the categories the API surfaces.
type Kind string

const (
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindDuplicateInterest Kind = "DUPLICATE_INTEREST"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindIncompleteProfile Kind = "INCOMPLETE_PROFILE"
	KindInvalidArgument   Kind = "INVALID_ARGUMENT"
	KindInternal          Kind = "INTERNAL"
)

// Error is the typed failure returned by service and repository layers.
// The transport layers (REST, WebSocket) translate it without inspecting
// the message.
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

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthorized(msg string) *Error      { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error         { return New(KindForbidden, msg) }
func NotFound(msg string) *Error          { return New(KindNotFound, msg) }
func DuplicateInterest(msg string) *Error { return New(KindDuplicateInterest, msg) }
func InvalidTransition(msg string) *Error { return New(KindInvalidTransition, msg) }
func IncompleteProfile(msg string) *Error { return New(KindIncompleteProfile, msg) }
func InvalidArgument(msg string) *Error   { return New(KindInvalidArgument, msg) }

// Internal wraps an unexpected failure (persistence, broadcast plumbing).
func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, msg, err)
}

// KindOf extracts the Kind from any error, defaulting to Internal for
// untyped failures.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
