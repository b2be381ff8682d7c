// Package vaxerr defines the domain error taxonomy shared by the vaccination
// engine. Every business-rule failure carries a stable machine-readable Kind
// plus a human message, so the HTTP layer can map errors without string
// matching.
package vaxerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of recoverable domain error.
type Kind string

const (
	KindNotFound                  Kind = "NOT_FOUND"
	KindInvalidSchedulingDate     Kind = "INVALID_SCHEDULING_DATE"
	KindInvalidDoseNumber         Kind = "INVALID_DOSE_NUMBER"
	KindMissingPreviousDose       Kind = "MISSING_PREVIOUS_DOSE"
	KindDuplicateScheduling       Kind = "DUPLICATE_SCHEDULING"
	KindDuplicateApplication      Kind = "DUPLICATE_APPLICATION"
	KindIntervalNotMet            Kind = "INTERVAL_NOT_MET"
	KindInsufficientStock         Kind = "INSUFFICIENT_STOCK"
	KindSchedulingAlreadyComplete Kind = "SCHEDULING_ALREADY_COMPLETED"
	KindExceededDoses             Kind = "EXCEEDED_DOSES"
	KindConflictingInput          Kind = "CONFLICTING_INPUT"
	KindInvalidInput              Kind = "INVALID_INPUT"
	KindForbidden                 Kind = "FORBIDDEN"
)

// Error is a domain error with a stable kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// New creates a domain error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(what string) *Error {
	return New(KindNotFound, "%s not found", what)
}

// KindOf returns the kind of err, or "" if err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code handlers respond with. Unknown
// kinds (storage failures and the like) map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateScheduling, KindDuplicateApplication, KindInsufficientStock,
		KindSchedulingAlreadyComplete:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidSchedulingDate, KindInvalidDoseNumber, KindMissingPreviousDose,
		KindIntervalNotMet, KindExceededDoses, KindConflictingInput, KindInvalidInput:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
