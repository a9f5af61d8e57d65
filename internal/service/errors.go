package service

import "errors"

// Failure kinds every operation can return. Handlers branch on these with
// errors.Is to pick an HTTP status; anything else is an internal error.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("invalid input")
)
