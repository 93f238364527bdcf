package services

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code returned to clients.
type Code string

const (
	CodeInvalidGenderState       Code = "INVALID_GENDER_STATE"
	CodeDuplicateMatch           Code = "DUPLICATE_MATCH"
	CodeDuplicateRequest         Code = "DUPLICATE_REQUEST"
	CodeGenderInvariantViolation Code = "GENDER_INVARIANT_VIOLATION"
	CodeUnauthorized             Code = "UNAUTHORIZED"
	CodeNotFound                 Code = "NOT_FOUND"
	CodeAlreadyResolved          Code = "ALREADY_RESOLVED"
	CodeValidation               Code = "VALIDATION"
	CodeInternal                 Code = "INTERNAL"
)

// HTTPStatus maps a code to the status the API answers with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidGenderState:
		return http.StatusUnprocessableEntity
	case CodeDuplicateMatch, CodeDuplicateRequest, CodeAlreadyResolved:
		return http.StatusConflict
	case CodeGenderInvariantViolation:
		return http.StatusServiceUnavailable
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type returned by every service.
type Error struct {
	Code    Code
	Message string // Safe to show to the client
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks
var (
	ErrInvalidGenderState       = newError(CodeInvalidGenderState, "invalid gender state")
	ErrDuplicateMatch           = newError(CodeDuplicateMatch, "duplicate match")
	ErrDuplicateRequest         = newError(CodeDuplicateRequest, "duplicate request")
	ErrGenderInvariantViolation = newError(CodeGenderInvariantViolation, "gender invariant violation")
	ErrUnauthorized             = newError(CodeUnauthorized, "unauthorized")
	ErrNotFound                 = newError(CodeNotFound, "not found")
	ErrAlreadyResolved          = newError(CodeAlreadyResolved, "already resolved")
	ErrValidation               = newError(CodeValidation, "validation failed")
	ErrInternal                 = newError(CodeInternal, "internal error")
)

// CodeOf extracts the code of a service error. Anything else is internal.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != CodeInternal {
		return domainErr.Message
	}
	return "Something went wrong, please try again"
}
