// Package session tracks the single active identity of the process.
//
// Every identity change advances an epoch. Callers that start long-running
// work capture a Ticket and later commit through WhileValid, which refuses
// to run once the identity moved on.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/okian/essayscore/internal/domain/model"
	"github.com/okian/essayscore/pkg/logger"
	"github.com/okian/essayscore/pkg/metrics"
)

// Actions reported in Change.Action.
const (
	ActionLogin  = "login"
	ActionSignup = "signup"
	ActionLogout = "logout"
)

// Ticket captures the session as seen at one moment.
type Ticket struct {
	Identity model.Identity
	Epoch    uint64
}

// Active reports whether the ticket was taken while someone was logged in.
func (t Ticket) Active() bool { return !t.Identity.IsZero() }

// Change describes the outcome of a lifecycle call.
type Change struct {
	Action   string
	Previous model.Identity
	Current  model.Identity
	Epoch    uint64
	// Changed is false when the call left the identity as it was.
	Changed bool
}

// Listener observes identity changes. It runs while the store's write lock
// is held and must not call back into the store.
type Listener func(ctx context.Context, c Change)

// Store holds the active identity. The zero value is not usable; use NewStore.
type Store struct {
	mu        sync.RWMutex
	identity  model.Identity
	epoch     uint64
	listeners []Listener
	logger    logger.Logger
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login makes identity the active one. Credentials are verified elsewhere.
// Logging in again with the active identity is a no-op.
func (s *Store) Login(ctx context.Context, identity string) (Change, error) {
	return s.set(ctx, ActionLogin, identity)
}

// Signup behaves like Login. When a password or confirmation is supplied
// they must match; neither is retained.
func (s *Store) Signup(ctx context.Context, identity, password, confirm string) (Change, error) {
	if (password != "" || confirm != "") && password != confirm {
		return Change{Action: ActionSignup}, ErrPasswordMismatch
	}
	return s.set(ctx, ActionSignup, identity)
}

// Logout clears the active identity. It always succeeds.
func (s *Store) Logout(ctx context.Context) Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Change{Action: ActionLogout, Previous: s.identity, Epoch: s.epoch}
	if s.identity.IsZero() {
		return c
	}
	s.identity = ""
	s.epoch++
	c.Epoch = s.epoch
	c.Changed = true
	s.notify(ctx, c)
	return c
}

func (s *Store) set(ctx context.Context, action, raw string) (Change, error) {
	identity := model.Identity(strings.TrimSpace(raw))
	if identity.IsZero() {
		return Change{Action: action}, ErrEmptyIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := Change{Action: action, Previous: s.identity, Current: identity, Epoch: s.epoch}
	if s.identity == identity {
		s.logger.Debug(ctx, "identity already active", logger.String("identity", identity.String()))
		return c, nil
	}
	s.identity = identity
	s.epoch++
	c.Epoch = s.epoch
	c.Changed = true
	s.notify(ctx, c)
	return c, nil
}

// notify must be called with s.mu held for writing.
func (s *Store) notify(ctx context.Context, c Change) {
	metrics.RecordSessionChange(c.Action)
	if c.Current.IsZero() {
		metrics.UpdateActiveSessions(0)
	} else {
		metrics.UpdateActiveSessions(1)
	}
	s.logger.Info(ctx, "session changed",
		logger.String("action", c.Action),
		logger.String("previous", c.Previous.String()),
		logger.String("current", c.Current.String()),
		logger.Int64("epoch", int64(c.Epoch)),
	)
	for _, fn := range s.listeners {
		fn(ctx, c)
	}
}

// Current returns a ticket for the live session.
func (s *Store) Current() Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Ticket{Identity: s.identity, Epoch: s.epoch}
}

// Identity returns the active identity, empty when logged out.
func (s *Store) Identity() model.Identity {
	return s.Current().Identity
}

// Valid reports whether t still describes the live session.
func (s *Store) Valid(t Ticket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked(t)
}

func (s *Store) validLocked(t Ticket) bool {
	return t.Active() && t.Identity == s.identity && t.Epoch == s.epoch
}

// WhileValid runs fn only if t is still valid, and keeps the session from
// changing until fn returns. It reports whether fn ran.
func (s *Store) WhileValid(t Ticket, fn func()) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked(t) {
		return false
	}
	fn()
	return true
}
