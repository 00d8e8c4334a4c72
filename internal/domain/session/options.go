package session

import "github.com/okian/essayscore/pkg/logger"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithListener registers a callback fired on every identity change.
func WithListener(fn Listener) Option {
	return func(s *Store) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}
