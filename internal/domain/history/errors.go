package history

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNoOwner    = errors.New("history has no owner")
	ErrWrongOwner = errors.New("record belongs to another identity")
)
