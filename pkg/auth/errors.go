package auth

import (
	"errors"
	"fmt"
)

// ErrEmptyEmail is returned when an operation receives an email that
// normalizes to the empty string.
var ErrEmptyEmail = errors.New("email is empty")

// ErrSessionNotFound is returned when a token does not resolve to a live session
var ErrSessionNotFound = errors.New("session not found")

// ProtectedRecordError is returned on attempts to delete or demote the
// permanent admin.
type ProtectedRecordError struct {
	Email string
}

func (e *ProtectedRecordError) Error() string {
	return fmt.Sprintf("%s is the permanent administrator and cannot be modified", e.Email)
}

// IsProtectedRecord reports whether err is a ProtectedRecordError
func IsProtectedRecord(err error) bool {
	var pre *ProtectedRecordError
	return errors.As(err, &pre)
}

// NotFoundError is returned when an email has no matching record
type NotFoundError struct {
	Kind  string // "permission" or "pending request"
	Email string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found for %s", e.Kind, e.Email)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
