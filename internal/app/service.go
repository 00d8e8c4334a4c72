// Package service is the application core behind the HTTP API. It owns the
// session, the essay history of the logged-in identity and the submission
// pipeline that calls the scoring service.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/essayscore/internal/adapters/scoring"
	"github.com/okian/essayscore/internal/config"
	"github.com/okian/essayscore/internal/domain/history"
	"github.com/okian/essayscore/internal/domain/inflight"
	"github.com/okian/essayscore/internal/domain/model"
	"github.com/okian/essayscore/internal/domain/session"
	"github.com/okian/essayscore/pkg/logger"
	"github.com/okian/essayscore/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a committed submission.
type Result struct {
	Record      model.EssayRecord  `json:"record"`
	TraitPoints []model.TraitPoint `json:"trait_points"`
}

// Display is the most recent successful result of the current session.
type Display struct {
	RecordID    string             `json:"record_id,omitempty"`
	Score       *model.Score       `json:"score"`
	Feedback    model.Feedback     `json:"feedback"`
	TraitPoints []model.TraitPoint `json:"trait_points"`
}

// Empty reports whether nothing has been scored yet.
func (d Display) Empty() bool { return d.Score == nil }

// Profile is the per-identity overview.
type Profile struct {
	Identity       model.Identity        `json:"identity"`
	Summary        model.Summary         `json:"summary"`
	AverageDisplay string                `json:"average_display"`
	Progress       []model.ProgressPoint `json:"progress"`
	TraitAverages  []model.TraitPoint    `json:"trait_averages"`
	TraitSeries    []model.TraitSeries   `json:"trait_series"`
}

// Service coordinates sessions, submissions and history.
type Service struct {
	mu      sync.RWMutex
	started bool
	running sync.WaitGroup

	// displayMu is never held while taking the session lock.
	displayMu sync.RWMutex
	display   Display

	sessions *session.Store
	history  *history.Aggregator
	guard    inflight.Guard
	scorer   scoring.Scorer

	defaultPrompt string
	concurrent    bool
	now           func() time.Time
	listeners     []ResultListener

	committed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	stale     atomic.Int64

	logger logger.Logger
}

// New constructs a Service. A scorer must be supplied with WithScorer
// before Start.
func New(opts ...Option) *Service {
	s := &Service{
		history:       history.New(),
		guard:         inflight.NewGuard(),
		defaultPrompt: config.DefaultPrompt,
		concurrent:    true,
		now:           time.Now,
		logger:        logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.sessions = session.NewStore(
		session.WithLogger(s.logger.Named("session")),
		session.WithListener(s.onSessionChange),
	)
	return s
}

// Start validates the wiring and opens the service for submissions.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.scorer == nil {
		return ErrNoScorer
	}

	s.started = true
	s.logger.Info(ctx, "essay service started",
		logger.Bool("concurrentScoring", s.concurrent),
	)
	return nil
}

// Stop refuses new submissions and waits for running ones to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping essay service...")
	s.running.Wait()
	s.logger.Info(context.Background(), "essay service stopped")
}

// onSessionChange runs under the session write lock, so no commit can
// interleave with the reset.
func (s *Service) onSessionChange(ctx context.Context, c session.Change) {
	s.history.Reset(c.Current)

	s.displayMu.Lock()
	s.display = Display{}
	s.displayMu.Unlock()

	s.logger.Debug(ctx, "history reset",
		logger.String("action", c.Action),
		logger.String("identity", c.Current.String()),
	)
}

// Login starts a session for email.
func (s *Service) Login(ctx context.Context, email string) (model.Identity, error) {
	c, err := s.sessions.Login(ctx, email)
	if err != nil {
		return "", &ValidationError{Field: "email", Err: err}
	}
	return c.Current, nil
}

// Signup starts a session for email after checking the password
// confirmation. Accounts are not persisted.
func (s *Service) Signup(ctx context.Context, email, password, confirm string) (model.Identity, error) {
	c, err := s.sessions.Signup(ctx, email, password, confirm)
	if err != nil {
		field := "email"
		if errors.Is(err, session.ErrPasswordMismatch) {
			field = "confirm_password"
		}
		return "", &ValidationError{Field: field, Err: err}
	}
	return c.Current, nil
}

// Logout ends the session. It always succeeds.
func (s *Service) Logout(ctx context.Context) {
	s.sessions.Logout(ctx)
}

// CurrentUser returns the logged-in identity, if any.
func (s *Service) CurrentUser() (model.Identity, bool) {
	id := s.sessions.Identity()
	return id, !id.IsZero()
}

// Submit scores essay, commits it to the history of the current identity
// and updates the display. Nothing is committed on any error.
func (s *Service) Submit(ctx context.Context, prompt, essay string) (Result, error) {
	start := time.Now()

	if strings.TrimSpace(essay) == "" {
		s.reject(metrics.OutcomeValidation)
		return Result{}, &ValidationError{Field: "essay", Reason: "must not be empty"}
	}

	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return Result{}, ErrNotStarted
	}
	s.running.Add(1)
	s.mu.RUnlock()
	defer s.running.Done()

	ticket := s.sessions.Current()
	if !ticket.Active() {
		s.reject(metrics.OutcomeNoSession)
		return Result{}, ErrNoActiveSession
	}

	key := fmt.Sprintf("%s#%d", ticket.Identity, ticket.Epoch)
	if !s.guard.TryAcquire(ctx, key) {
		s.reject(metrics.OutcomeInFlight)
		s.logger.Warn(ctx, "submission rejected, another one is running",
			logger.String("identity", ticket.Identity.String()),
		)
		return Result{}, ErrSubmissionInFlight
	}
	defer s.guard.Release(ctx, key)

	if strings.TrimSpace(prompt) == "" {
		prompt = s.defaultPrompt
	}

	score, feedback, err := s.evaluate(ctx, essay)
	if err != nil {
		s.failed.Add(1)
		metrics.RecordSubmission(metrics.OutcomeFailed)
		s.logger.Error(ctx, "submission failed",
			logger.String("identity", ticket.Identity.String()),
			logger.Error(err),
		)
		return Result{}, err
	}

	rec := model.EssayRecord{
		ID:          uuid.NewString(),
		Prompt:      prompt,
		Content:     essay,
		Score:       score,
		Feedback:    feedback,
		SubmittedAt: s.now(),
	}

	var appendErr error
	valid := s.sessions.WhileValid(ticket, func() {
		if appendErr = s.history.Append(ticket.Identity, rec); appendErr != nil {
			return
		}
		s.displayMu.Lock()
		s.display = displayOf(rec)
		s.displayMu.Unlock()
	})
	if !valid {
		s.stale.Add(1)
		metrics.RecordSubmission(metrics.OutcomeStale)
		s.logger.Warn(ctx, "session changed during submission, result discarded",
			logger.String("identity", ticket.Identity.String()),
		)
		return Result{}, ErrStaleSession
	}
	if appendErr != nil {
		return Result{}, fmt.Errorf("commit record: %w", appendErr)
	}

	s.committed.Add(1)
	metrics.RecordSubmission(metrics.OutcomeCommitted)
	metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))
	s.logger.Info(ctx, "essay scored",
		logger.String("identity", ticket.Identity.String()),
		logger.String("recordID", rec.ID),
		logger.Float64("domain1Score", score.Domain1Score),
		logger.Duration("took", time.Since(start)),
	)

	for _, fn := range s.listeners {
		fn(rec)
	}

	return Result{Record: rec, TraitPoints: score.TraitPoints()}, nil
}

// evaluate requests score and feedback and waits for both.
func (s *Service) evaluate(ctx context.Context, essay string) (model.Score, model.Feedback, error) {
	var (
		score                 model.Score
		feedback              model.Feedback
		scoreErr, feedbackErr error
	)

	if s.concurrent {
		var g errgroup.Group
		g.Go(func() error {
			score, scoreErr = s.scorer.RequestScore(ctx, essay)
			return scoreErr
		})
		g.Go(func() error {
			feedback, feedbackErr = s.scorer.RequestFeedback(ctx, essay)
			return feedbackErr
		})
		_ = g.Wait()
	} else {
		score, scoreErr = s.scorer.RequestScore(ctx, essay)
		if scoreErr == nil {
			feedback, feedbackErr = s.scorer.RequestFeedback(ctx, essay)
		}
	}

	var errs []error
	for _, err := range []error{scoreErr, feedbackErr} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return model.Score{}, nil, &SubmissionError{Errs: errs}
	}
	return score, feedback, nil
}

func (s *Service) reject(outcome string) {
	s.rejected.Add(1)
	metrics.RecordSubmission(outcome)
}

func displayOf(rec model.EssayRecord) Display {
	score := rec.Score
	return Display{
		RecordID:    rec.ID,
		Score:       &score,
		Feedback:    rec.Feedback.Clone(),
		TraitPoints: score.TraitPoints(),
	}
}

// History returns the records of the current identity in submission order.
func (s *Service) History() ([]model.EssayRecord, error) {
	var recs []model.EssayRecord
	if !s.sessions.WhileValid(s.sessions.Current(), func() {
		recs = s.history.Records()
	}) {
		return nil, ErrNoActiveSession
	}
	return recs, nil
}

// Profile returns the statistics of the current identity.
func (s *Service) Profile() (Profile, error) {
	ticket := s.sessions.Current()
	var p Profile
	if !s.sessions.WhileValid(ticket, func() {
		summary := s.history.Summary()
		p = Profile{
			Identity:       ticket.Identity,
			Summary:        summary,
			AverageDisplay: fmt.Sprintf("%.2f", summary.AverageScore),
			Progress:       s.history.ProgressSeries(),
			TraitAverages:  s.history.TraitAverages(),
			TraitSeries:    s.history.TraitSeries(),
		}
	}) {
		return Profile{}, ErrNoActiveSession
	}
	return p, nil
}

// Display returns the latest successful result, empty after logout.
func (s *Service) Display() Display {
	s.displayMu.RLock()
	defer s.displayMu.RUnlock()
	d := s.display
	d.Feedback = d.Feedback.Clone()
	if d.TraitPoints != nil {
		d.TraitPoints = append([]model.TraitPoint(nil), d.TraitPoints...)
	}
	return d
}

// DefaultPrompt returns the prompt shown to writers.
func (s *Service) DefaultPrompt() string {
	return s.defaultPrompt
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	id, active := s.CurrentUser()
	stats := map[string]interface{}{
		"started":           started,
		"concurrentScoring": s.concurrent,
		"sessionActive":     active,
		"historySize":       s.history.Len(),
		"averageScore":      s.history.AverageScore(),
		"inFlight":          s.guard.Size(),
		"committed":         s.committed.Load(),
		"failed":            s.failed.Load(),
		"rejected":          s.rejected.Load(),
		"stale":             s.stale.Load(),
	}
	if active {
		stats["identity"] = id.String()
	}
	return stats
}
