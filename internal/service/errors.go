// Package service implements the conflict-resolution workflow engine.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a workflow error so the transport layer can map it to a
// status code and the client can route the user appropriately.
type Kind int

const (
	// KindUnknown is an unclassified internal error.
	KindUnknown Kind = iota
	// KindUnauthorized means the caller is not authenticated.
	KindUnauthorized
	// KindForbidden means the caller is not a participant in the resource.
	KindForbidden
	// KindNotFound means the referenced resource does not exist.
	KindNotFound
	// KindValidation means the input was malformed.
	KindValidation
	// KindConflict means a business rule rejected the operation.
	KindConflict
	// KindRedFlag means safety screening halted the conversation; the client
	// routes the user to the safety-resources experience, never a generic
	// error.
	KindRedFlag
	// KindTransient means a persistence failure; the caller may retry.
	KindTransient
)

// Error is a classified workflow error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a classified error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// wrap classifies an underlying error.
func wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage returns the user-facing message of a classified error, or a
// generic fallback so raw internals never leak to the client.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "an unexpected error occurred"
}
