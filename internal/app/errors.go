package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks input rejected before any external call.
	ErrValidation = errors.New("validation failed")
	// ErrNoActiveSession is returned when an operation needs a logged-in identity.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSubmission marks a submission whose score or feedback call failed.
	ErrSubmission = errors.New("submission failed")
	// ErrSubmissionInFlight is returned while another submission of the same
	// session is running.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrStaleSession is returned when the session changed while the
	// submission was running. The result is discarded.
	ErrStaleSession = errors.New("session changed during submission")
	// ErrNotStarted is returned by Submit before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrNoScorer is returned by Start when no scorer was configured.
	ErrNoScorer = errors.New("no scorer configured")
)

// ValidationError describes rejected input.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	default:
		return "invalid " + e.Field
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SubmissionError carries every failure of one submission attempt.
type SubmissionError struct {
	Errs []error
}

func (e *SubmissionError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return ErrSubmission.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *SubmissionError) Unwrap() []error { return e.Errs }

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }
