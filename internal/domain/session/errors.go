package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrEmptyIdentity    = errors.New("identity must not be empty")
	ErrPasswordMismatch = errors.New("passwords don't match")
)
