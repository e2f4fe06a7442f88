package app

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindPersistence ErrorKind = "persistence"
)

const (
	CodeInvalidDates      = "invalid_dates"
	CodeInvalidGuestCount = "invalid_guest_count"
	CodeInvalidFilters    = "invalid_filters"
	CodeRoomUnavailable   = "room_unavailable"
	CodeRoomNotFound      = "room_not_found"
	CodeNotFound          = "not_found"
	CodeInvalidRequest    = "invalid_request"
	CodePersistence       = "persistence_error"
)

// Error is an expected failure that front doors render as {"error": Msg}.
type Error struct {
	Kind ErrorKind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Err }

func validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Msg: msg}
}

func notFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Msg: msg}
}

// persistence keeps the collaborator message verbatim.
func persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Code: CodePersistence, Msg: err.Error(), Err: fmt.Errorf("%s: %w", op, err)}
}

var errRoomUnavailable = &Error{Kind: KindConflict, Code: CodeRoomUnavailable, Msg: "Room is not available for the selected dates."}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
