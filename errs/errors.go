package errs

/*
 * 'errs' centralizes the error taxonomy of the Rally core. Every service
 * returns one of these kinds so controllers (and socket handlers) can map
 * them to a response without string-matching ad hoc messages.
 */

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota
	KindConflict
	KindNotFound
	KindAuth
	KindTransient
	KindNotify
)

// Reasons reused across services. Conflict reasons are part of the API
// contract (clients branch on them), so they live here, not in handlers.
const (
	ReasonAlreadyDecided = "already decided"
	ReasonGameFull       = "game full"
	ReasonDuplicate      = "duplicate"
	ReasonBookingClosed  = "booking closed"
)

type Error struct {
	Kind   Kind
	Reason string
	Err    error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Reason != "" {
			return fmt.Sprintf("%s: %v", e.Reason, e.Err)
		}
		return e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

func Conflict(reason string) *Error {
	return &Error{Kind: KindConflict, Reason: reason}
}

func NotFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

func Auth(reason string) *Error {
	return &Error{Kind: KindAuth, Reason: reason}
}

// Transient wraps a retryable store/network failure.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Reason: "transient store error", Err: err}
}

// NotifyFailure wraps a failed best-effort notification insert. It is never
// the primary error of an operation; callers log it and move on.
func NotifyFailure(err error) *Error {
	return &Error{Kind: KindNotify, Reason: "notification not delivered", Err: err}
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsConflict(err error) bool  { return Is(err, KindConflict) }
func IsNotFound(err error) bool  { return Is(err, KindNotFound) }
func IsTransient(err error) bool { return Is(err, KindTransient) }

// ReasonOf returns the taxonomy reason, or the plain error text for
// errors that did not come out of a Rally service.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}
