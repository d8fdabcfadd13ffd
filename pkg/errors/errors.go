// Package errors defines the error taxonomy shared by every layer of the
// search engine: a Kind drawn from a small fixed set, a stable negative
// numeric Code, and a human-readable Message. Handlers at the HTTP boundary
// map Kind to a status code; everywhere else code should match on Kind via
// errors.Is / errors.As rather than string comparison.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the taxonomy of error categories the core can produce.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindNotFound
	KindCorruption
	KindIO
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindCorruption:
		return "corruption"
	case KindIO:
		return "io"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// code is the stable negative numeric code surfaced in API responses.
func (k Kind) code() int {
	switch k {
	case KindInvalidArgument:
		return -1
	case KindNotFound:
		return -2
	case KindCorruption:
		return -3
	case KindIO:
		return -4
	case KindConflict:
		return -5
	default:
		return -6
	}
}

// Error is the concrete error type produced by this module.
type Error struct {
	Kind    Kind
	Message string
	Key     []byte // set by Corruption errors to the offending KV key
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Code returns the stable negative numeric code for this error's Kind.
func (e *Error) Code() int { return e.Kind.code() }

// New constructs an Error of the given Kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given Kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given Kind that wraps cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Corruption constructs a KindCorruption error carrying the offending key.
func Corruption(key []byte, cause error) *Error {
	return &Error{Kind: KindCorruption, Message: "decode failure", Key: key, Cause: cause}
}

// Is reports whether err's Kind matches kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// HTTPStatusCode maps an error's Kind to the HTTP status code the transport
// adapter should return.
func HTTPStatusCode(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindIO:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
