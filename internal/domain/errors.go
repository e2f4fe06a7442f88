package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrRoomUnavailable = errors.New("room is not available for the selected dates")
	ErrUnknownChannel  = errors.New("unknown source channel")
	ErrUnknownStatus   = errors.New("unknown booking status")
)
