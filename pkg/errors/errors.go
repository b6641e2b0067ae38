// Package errors defines the coded error type every layer returns and the
// HTTP metadata the response writer derives from each code.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeInvalidQuantity   Code = "INVALID_QUANTITY"
	CodeConflict          Code = "CONFLICT"
	CodeStateConflict     Code = "STATE_CONFLICT"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit         Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code surfaces to clients.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// ExposeMessage lets the error's own message replace PublicMessage.
	ExposeMessage  bool
	DetailsAllowed bool
}

const (
	retryable = 1 << iota
	exposed
	detailed
)

func meta(status int, public string, flags int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		ExposeMessage:  flags&exposed != 0,
		DetailsAllowed: flags&detailed != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:        meta(http.StatusBadRequest, "validation failed", exposed|detailed),
	CodeUnauthorized:      meta(http.StatusUnauthorized, "authentication required", exposed),
	CodeForbidden:         meta(http.StatusForbidden, "access denied", exposed),
	CodeNotFound:          meta(http.StatusNotFound, "resource not found", exposed),
	CodeInsufficientStock: meta(http.StatusConflict, "insufficient stock", exposed|detailed),
	CodeInvalidQuantity:   meta(http.StatusBadRequest, "invalid quantity", exposed|detailed),
	CodeConflict:          meta(http.StatusConflict, "conflict detected", exposed),
	CodeStateConflict:     meta(http.StatusUnprocessableEntity, "state transition disallowed", exposed|detailed),
	CodeIdempotency:       meta(http.StatusConflict, "idempotency key reused", exposed|detailed),
	CodeRateLimit:         meta(http.StatusTooManyRequests, "rate limit exceeded", exposed),
	CodeInternal:          meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:        meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|detailed),
}

// MetadataFor falls back to the internal error entry for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional client-safe details payload.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the details payload and returns the receiver for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, if any.
func CodeOf(err error) (Code, bool) {
	if typed := As(err); typed != nil {
		return typed.code, true
	}
	return "", false
}

// Is reports whether err carries a typed error with the provided code.
func Is(err error, code Code) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}
