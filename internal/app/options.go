package service

import (
	"time"

	"github.com/okian/essayscore/internal/adapters/scoring"
	"github.com/okian/essayscore/internal/domain/inflight"
	"github.com/okian/essayscore/internal/domain/model"
	"github.com/okian/essayscore/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// ResultListener observes committed records. It runs after the commit,
// outside every lock.
type ResultListener func(rec model.EssayRecord)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScorer sets the scoring backend.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		s.scorer = sc
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDefaultPrompt sets the prompt used when a submission carries none.
func WithDefaultPrompt(prompt string) Option {
	return func(s *Service) {
		if prompt != "" {
			s.defaultPrompt = prompt
		}
	}
}

// WithConcurrentScoring chooses between issuing the score and feedback
// calls together (true) or one after the other (false).
func WithConcurrentScoring(concurrent bool) Option {
	return func(s *Service) {
		s.concurrent = concurrent
	}
}

// WithResultListener registers a listener for committed records.
func WithResultListener(fn ResultListener) Option {
	return func(s *Service) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// WithGuard replaces the in-flight guard.
func WithGuard(g inflight.Guard) Option {
	return func(s *Service) {
		if g != nil {
			s.guard = g
		}
	}
}
