/*
Package clienterr defines the single error shape the session client hands to
its callers. Every failure is classified into one Kind so the UI can choose
between "check your input", "check your password" and "check your connection".
*/
package clienterr

import (
	"errors"
	"fmt"
)

// Kind classifies a client failure.
type Kind string

const (
	// KindValidation means the input was rejected, locally or by the server.
	KindValidation Kind = "validation"
	// KindAuth means credentials, a security answer or a ticket were rejected.
	KindAuth Kind = "auth"
	// KindNetwork means no response was received.
	KindNetwork Kind = "network"
	// KindPersistence means local storage failed.
	KindPersistence Kind = "persistence"
	// KindUnknown covers unexpected server responses.
	KindUnknown Kind = "unknown"
)

// MsgConnectionFailed is shown when the server could not be reached.
const MsgConnectionFailed = "Connection failed. Check your internet connection and try again."

// MsgGeneric is shown when the server gave no usable message.
const MsgGeneric = "Something went wrong. Please try again."

// MsgPersistence is shown when the device could not store the session.
const MsgPersistence = "Could not save your session on this device."

// Error is a classified client failure.
type Error struct {
	Op     string
	Kind   Kind
	Status int
	// Message is safe to show to the user.
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "client error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a user-facing message.
func New(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// Wrap classifies err. An err that is already an *Error keeps its kind and message.
func Wrap(op string, kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Op: op, Kind: kind, Message: message, Err: err}
}

// Persistence wraps a local storage failure.
func Persistence(op string, err error) error {
	return Wrap(op, KindPersistence, MsgPersistence, err)
}

// KindOf returns the Kind of err, or KindUnknown when err is not classified.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return MsgGeneric
}

// Is reports whether err has the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
