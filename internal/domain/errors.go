package domain

import "errors"

// Errors shared by every layer. Services wrap them with context and handlers
// pick a status code with errors.Is.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Verification code outcomes.
var (
	// ErrInvalidCode covers unknown, consumed, expired and wrong-context codes alike.
	ErrInvalidCode = errors.New("invalid or expired verification code")
	// ErrStorage marks a failure of the backing store rather than a logical rejection.
	ErrStorage = errors.New("storage failure")
)
