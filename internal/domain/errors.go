package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the request boundary.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindMismatch           Kind = "mismatch"
	KindConflict           Kind = "conflict"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindEmailUnverified    Kind = "email_unverified"
	KindNotApproved        Kind = "not_approved"
	KindInvalidToken       Kind = "invalid_token"
	KindUnavailable        Kind = "unavailable"
	KindInternal           Kind = "internal"
)

// Error is the error type every service and repository returns.
// Detail carries structured data for the caller (e.g. the approver on a conflict).
type Error struct {
	Kind   Kind
	Msg    string
	Detail any
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so that errors.Is(err, domain.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrMismatch           = &Error{Kind: KindMismatch}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrEmailUnverified    = &Error{Kind: KindEmailUnverified}
	ErrNotApproved        = &Error{Kind: KindNotApproved}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken}
	ErrUnavailable        = &Error{Kind: KindUnavailable}
)

func Validation(msg string) error         { return &Error{Kind: KindValidation, Msg: msg} }
func Mismatch(msg string) error           { return &Error{Kind: KindMismatch, Msg: msg} }
func Forbidden(msg string) error          { return &Error{Kind: KindForbidden, Msg: msg} }
func NotFound(msg string) error           { return &Error{Kind: KindNotFound, Msg: msg} }
func InvalidCredentials(msg string) error { return &Error{Kind: KindInvalidCredentials, Msg: msg} }
func EmailUnverified(msg string) error    { return &Error{Kind: KindEmailUnverified, Msg: msg} }
func NotApproved(msg string) error        { return &Error{Kind: KindNotApproved, Msg: msg} }

func Conflict(msg string, detail any) error {
	return &Error{Kind: KindConflict, Msg: msg, Detail: detail}
}

func InvalidToken(err error) error {
	return &Error{Kind: KindInvalidToken, Msg: "invalid or expired token", Err: err}
}

func Unavailable(op string, err error) error {
	return &Error{Kind: KindUnavailable, Msg: op + " failed", Err: err}
}

func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf reports the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
