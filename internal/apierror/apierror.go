// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}

// Kind classifies a domain error into one HTTP outcome.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindStorage
)

// Error is returned by services. Message is safe to show to clients except
// for KindStorage, whose cause is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }

// Storage wraps an unexpected store failure.
func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// Status maps err to an HTTP status and a client-safe envelope.
// ok is false for errors that are not *Error or are storage failures;
// callers should treat those as 500 and log the cause.
func Status(err error) (status int, body *APIError, ok bool) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, nil, false
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest, New(e.Message), true
	case KindUnauthorized:
		return http.StatusUnauthorized, New(e.Message), true
	case KindForbidden:
		return http.StatusForbidden, New(e.Message), true
	case KindNotFound:
		return http.StatusNotFound, New(e.Message), true
	case KindConflict:
		return http.StatusConflict, New(e.Message), true
	default:
		return http.StatusInternalServerError, nil, false
	}
}
