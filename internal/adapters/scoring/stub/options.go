package stub

import (
	"time"

	"github.com/okian/essayscore/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Server) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithSeed makes generated scores reproducible.
func WithSeed(seed int64) Option {
	return func(s *Server) {
		s.seed = seed
	}
}

// WithFailing makes the given endpoints answer 500 until cleared.
func WithFailing(endpoints ...string) Option {
	return func(s *Server) {
		for _, e := range endpoints {
			s.failing[e] = true
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
