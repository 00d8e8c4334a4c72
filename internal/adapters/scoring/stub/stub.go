// Package stub is a simulated scoring service for local runs and tests.
// It answers the same two endpoints as the real service with random,
// rubric-shaped values. It does not judge essays.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/essayscore/internal/adapters/scoring"
	"github.com/okian/essayscore/internal/domain/model"
	"github.com/okian/essayscore/pkg/logger"
)

const (
	defaultMinLatency = 80 * time.Millisecond
	defaultMaxLatency = 150 * time.Millisecond
	defaultSeed       = 42
	maxTraitValue     = 3
)

// Server serves POST /score-essay and POST /generate-feedback.
type Server struct {
	minLatency time.Duration
	maxLatency time.Duration
	seed       int64
	logger     logger.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	failing map[string]bool

	scoreCalls    atomic.Int64
	feedbackCalls atomic.Int64
}

// New creates a stub server.
func New(opts ...Option) *Server {
	s := &Server{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		seed:       defaultSeed,
		logger:     logger.Nop(),
		failing:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewSource(s.seed)) //nolint:gosec // reproducible fake scores
	return s
}

// Handler returns the HTTP routes of the stub.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /"+scoring.EndpointScore, s.handleScore)
	mux.HandleFunc("POST /"+scoring.EndpointFeedback, s.handleFeedback)
	return mux
}

// SetFailing toggles failure injection for one endpoint.
func (s *Server) SetFailing(endpoint string, failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[endpoint] = failing
}

// Calls reports how many requests each endpoint received.
func (s *Server) Calls() (score, feedback int64) {
	return s.scoreCalls.Load(), s.feedbackCalls.Load()
}

// Score generates a rubric-shaped score. Each rater gives four traits in
// [0,3]; the rater total doubles the first trait and the resolved score is
// the sum of both raters.
func (s *Server) Score() model.Score {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r1, r2 [model.TraitCount]float64
	for i := range r1 {
		r1[i] = float64(s.rng.Intn(maxTraitValue + 1))
		r2[i] = float64(s.rng.Intn(maxTraitValue + 1))
	}
	total := func(t [model.TraitCount]float64) float64 {
		sum := t[0]
		for _, v := range t {
			sum += v
		}
		return sum
	}
	d1, d2 := total(r1), total(r2)
	return model.Score{
		Domain1Score:  d1 + d2,
		Rater1Domain1: d1,
		Rater2Domain1: d2,
		Rater1Trait1:  r1[0],
		Rater1Trait2:  r1[1],
		Rater1Trait3:  r1[2],
		Rater1Trait4:  r1[3],
		Rater2Trait1:  r2[0],
		Rater2Trait2:  r2[1],
		Rater2Trait3:  r2[2],
		Rater2Trait4:  r2[3],
	}
}

// Feedback generates one line of feedback per rubric trait.
func (s *Server) Feedback(essay string) model.Feedback {
	words := len(strings.Fields(essay))
	return model.Feedback{
		"Ideas":        fmt.Sprintf("The essay develops its idea across %d words; add one more concrete example.", words),
		"Organization": "Paragraphs follow a clear order; strengthen the transition into the conclusion.",
		"Style":        "Word choice is mostly precise; vary sentence openings.",
		"Conventions":  "Spelling and punctuation are largely correct.",
	}
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	s.scoreCalls.Add(1)
	if !s.prepare(w, r, scoring.EndpointScore) {
		return
	}
	writeJSON(w, http.StatusOK, s.Score())
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	s.feedbackCalls.Add(1)
	var req scoring.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid request body"})
		return
	}
	if !s.prepare(w, r, scoring.EndpointFeedback) {
		return
	}
	writeJSON(w, http.StatusOK, s.Feedback(req.Essay))
}

// prepare waits the simulated latency and applies failure injection. It
// reports whether the handler should go on.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	if err := s.sleep(r.Context()); err != nil {
		return false
	}
	s.mu.Lock()
	failing := s.failing[endpoint]
	s.mu.Unlock()
	if failing {
		s.logger.Warn(r.Context(), "injected failure", logger.String("endpoint", endpoint))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Failed to " + strings.ReplaceAll(endpoint, "-", " ")})
		return false
	}
	return true
}

func (s *Server) sleep(ctx context.Context) error {
	latency := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		s.mu.Lock()
		latency += time.Duration(s.rng.Int63n(int64(span)))
		s.mu.Unlock()
	}
	if latency == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(latency):
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
