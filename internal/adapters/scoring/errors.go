package scoring

import (
	"context"
	"errors"
	"fmt"
)

// ErrService is the kind shared by every failed scoring call.
var ErrService = errors.New("scoring service call failed")

// Failure kinds reported by ServiceError.Kind.
const (
	KindTransport = "transport"
	KindTimeout   = "timeout"
	KindStatus    = "status"
	KindDecode    = "decode"
	KindRateLimit = "rate_limit"
)

// ServiceError describes one failed call to the scoring service.
type ServiceError struct {
	// Endpoint is the path that was called, e.g. "score-essay".
	Endpoint string
	// StatusCode is set when the service answered with a non-2xx status.
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("scoring %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("scoring %s: %v", e.Endpoint, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrService) hold for every ServiceError.
func (e *ServiceError) Is(target error) bool { return target == ErrService }

// Kind classifies the failure for metrics and logs.
func (e *ServiceError) Kind() string {
	var kinded interface{ kind() string }
	switch {
	case e.StatusCode != 0:
		return KindStatus
	case errors.Is(e.Err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(e.Err, &kinded):
		return kinded.kind()
	default:
		return KindTransport
	}
}

type decodeError struct{ err error }

func (d decodeError) Error() string { return "malformed response: " + d.err.Error() }
func (d decodeError) Unwrap() error { return d.err }
func (decodeError) kind() string    { return KindDecode }

type limiterError struct{ err error }

func (l limiterError) Error() string { return "rate limiter: " + l.err.Error() }
func (l limiterError) Unwrap() error { return l.err }
func (limiterError) kind() string    { return KindRateLimit }
