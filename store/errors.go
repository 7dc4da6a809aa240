package store

import "errors"

var (
	// ErrNilParam indicates a required parameter was nil or empty.
	ErrNilParam = errors.New("store: nil parameter")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrInvalidKind indicates an unknown asset or history kind.
	ErrInvalidKind = errors.New("store: invalid kind")
)
