package types

import "errors"

var (
	// ErrNotFound is returned when a project, user or payment method does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a uniqueness violation, e.g. a taken email.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument signals failed input validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized signals a missing, expired or torn down session.
	ErrUnauthorized = errors.New("unauthorized")
)
