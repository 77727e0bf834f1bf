package rooms

import (
	"errors"
	"fmt"
)

// Kind classifies room errors into the stable categories clients map to UI
// treatment. Only Unavailable is safe to retry.
type Kind string

const (
	KindNotFound      Kind = "NOT_FOUND"
	KindForbidden     Kind = "FORBIDDEN"
	KindInvalidState  Kind = "INVALID_STATE"
	KindRoomFull      Kind = "ROOM_FULL"
	KindAlreadyMember Kind = "ALREADY_MEMBER"
	KindUnavailable   Kind = "UNAVAILABLE"
	KindInternal      Kind = "INTERNAL"
)

// Error carries a stable kind plus a human-readable message. An operation
// that returns a non-nil Error has left the room untouched.
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

// E builds a room error with the given kind and message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches an underlying cause to a room error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from any error. Unclassified errors are treated as
// Internal: an unexpected invariant violation is a bug, never silently mapped
// to a user-facing category.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

// Retryable reports whether the caller may safely retry the operation.
func Retryable(err error) bool {
	return KindOf(err) == KindUnavailable
}
