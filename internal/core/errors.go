package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the failure taxonomy surfaced to callers. Every precondition
// failure is detected before any write, so a returned DomainError always
// means nothing was committed.
type ErrorKind int

const (
	// KindNotFound: referenced customer, account, or order does not exist.
	KindNotFound ErrorKind = iota
	// KindConflict: opening a second account for a customer, or reusing a
	// payment idempotency key.
	KindConflict
	// KindInvalidState: the operation is well-formed but the account's current
	// state forbids it (limit below outstanding debt, inactive account,
	// insufficient available credit).
	KindInvalidState
	// KindValidation: malformed input (non-positive amount, missing reason).
	KindValidation
)

// DomainError carries a human-readable reason and an HTTP-equivalent status
// class for the API layer to render. The core itself is protocol-agnostic.
type DomainError struct {
	Kind ErrorKind
	msg  string
}

func (e *DomainError) Error() string { return e.msg }

// HTTPStatus maps the error kind to its HTTP-equivalent status class.
func (e *DomainError) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// Code returns a stable machine-readable error code.
func (e *DomainError) Code() string {
	switch e.Kind {
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindInvalidState:
		return "INVALID_STATE"
	default:
		return "VALIDATION_ERROR"
	}
}

func notFoundf(format string, args ...any) error {
	return &DomainError{Kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &DomainError{Kind: KindConflict, msg: fmt.Sprintf(format, args...)}
}

func invalidStatef(format string, args ...any) error {
	return &DomainError{Kind: KindInvalidState, msg: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return &DomainError{Kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// Validationf builds a validation DomainError. Adapter layers use it to
// reject malformed input (bad dates, unparsable amounts) with the same
// taxonomy as core precondition failures.
func Validationf(format string, args ...any) error {
	return validationf(format, args...)
}

// IsKind reports whether err is (or wraps) a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Kind == kind
}

func IsNotFound(err error) bool     { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool     { return IsKind(err, KindConflict) }
func IsInvalidState(err error) bool { return IsKind(err, KindInvalidState) }
func IsValidation(err error) bool   { return IsKind(err, KindValidation) }
