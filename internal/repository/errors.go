package repository

import "errors"

var (
	// ErrInvalidTransition is returned when a status or payment mutation is
	// rejected by the transition table while the order row is locked.
	ErrInvalidTransition = errors.New("invalid order transition")

	// ErrDuplicate is returned when a uniqueness constraint refuses an insert.
	ErrDuplicate = errors.New("duplicate record")
)
