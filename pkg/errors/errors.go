package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, client visible error category.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

// Metadata describes how a code is rendered over HTTP. ExposeMessage marks
// codes whose own message is safe to show the caller; the rest fall back to
// PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   {http.StatusBadRequest, false, "validation failed", true, true},
	CodeUnauthorized: {http.StatusUnauthorized, false, "authentication required", true, false},
	CodeForbidden:    {http.StatusForbidden, false, "access denied", true, false},
	CodeNotFound:     {http.StatusNotFound, false, "resource not found", true, false},
	CodeConflict:     {http.StatusConflict, false, "state transition disallowed", true, true},
	CodeIdempotency:  {http.StatusConflict, false, "idempotency key reused", true, true},
	CodeRateLimit:    {http.StatusTooManyRequests, true, "too many requests", true, false},
	CodeInternal:     {http.StatusInternalServerError, true, "internal server error", false, false},
	CodeDependency:   {http.StatusServiceUnavailable, true, "dependency unavailable", false, true},
}

// MetadataFor returns the rendering rules for code; unknown codes render as internal.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional cause and structured details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// Code is nil-safe so callers can use As(err).Code() without a check.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string { return e.message }

func (e *Error) Details() any { return e.details }

// Retryable reports whether clients may retry the same request unchanged.
func (e *Error) Retryable() bool { return MetadataFor(e.Code()).Retryable }

// WithDetails attaches structured, client-visible details and returns e.
func (e *Error) WithDetails(details any) *Error {
	e.details = details
	return e
}

func (e *Error) Error() string {
	msg := string(e.code) + ": " + e.message
	if e.cause == nil {
		return msg
	}
	return msg + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error by code so errors.Is(err, New(CodeNotFound, ""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.code == t.code
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
