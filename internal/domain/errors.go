package domain

import (
	"errors"
	"fmt"
)

// Wire error codes, delivered in error replies and mapped to HTTP statuses
// by the REST layer.
const (
	CodeAuthRequired      = "AUTH_REQUIRED"
	CodeLocked            = "LOCKED"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeForbidden         = "FORBIDDEN"
	CodeDuplicateName     = "DUPLICATE_NAME"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInternal          = "INTERNAL"
)

// Error is a coded application error. No Error is fatal to the process: the
// caller gets an explicit reply and the session stays connected.
type Error struct {
	Code    string
	Message string
	// lockLost distinguishes a lost lock from a held one; both share the
	// LOCKED wire code but only a lost lock disables a session's writes.
	lockLost bool
}

func (e *Error) Error() string { return e.Message }

func ErrAuthRequired() error {
	return &Error{Code: CodeAuthRequired, Message: "authentication required"}
}

func ErrInvalidInput(msg string) error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

func ErrNotFound(what string) error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}

func ErrForbidden(msg string) error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func ErrInvalidTransition(current, expected RequestStatus) error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("invalid request status: %s, expected %s", current, expected),
	}
}

func ErrDuplicateName(name string) error {
	return &Error{Code: CodeDuplicateName, Message: fmt.Sprintf("request name %q already exists", name)}
}

// ErrLockHeld is returned to a session racing for a lock another picker holds.
func ErrLockHeld(holder string) error {
	return &Error{Code: CodeLocked, Message: "request is locked by another user: " + holder}
}

// ErrLockLost is returned to writes from a session whose lock was released
// out from under it (admin override or stale-lock reaper).
func ErrLockLost() error {
	return &Error{Code: CodeLocked, Message: "pick lock lost, re-acquire the request", lockLost: true}
}

// CodeOf extracts the wire code, defaulting to INTERNAL for plain errors.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func IsLockLost(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.lockLost
}
