// Package smoke drives a running essay API through a full session and checks
// the history invariants from the outside.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/essayscore/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ErrVerification marks a run whose observations broke an invariant.
var ErrVerification = errors.New("smoke verification failed")

const averageTolerance = 1e-9

// Run executes the complete smoke scenario.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Named("smoke")
	stats := &Stats{StartTime: time.Now(), Identity: config.Email}
	if stats.Identity == "" {
		stats.Identity = "smoke-" + uuid.NewString() + "@example.com"
	}
	client := newHTTPClient(config.BaseURL, config.Timeout)
	gen := newEssayGenerator(config.Seed)

	log.Info(ctx, "starting essay smoke run",
		logger.String("baseURL", config.BaseURL),
		logger.String("identity", stats.Identity),
		logger.Int("submissions", config.Submissions),
	)

	// Step 1: Check service health
	if err := client.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Start from a fresh session
	if err := client.do(ctx, http.MethodPost, "/session/logout", nil, nil); err != nil {
		return stats, fmt.Errorf("logout failed: %w", err)
	}
	if err := login(ctx, client, stats.Identity); err != nil {
		return stats, err
	}
	if err := expectEmpty(ctx, client); err != nil {
		return stats, err
	}

	// Step 3: Submit the same essay twice at once
	if err := submitConcurrently(ctx, client, gen.next(), stats); err != nil {
		return stats, err
	}
	if err := expectCount(ctx, client, stats.Committed); err != nil {
		return stats, err
	}

	// Step 4: Sequential submissions
	for i := 0; i < config.Submissions; i++ {
		if err := submit(ctx, client, gen.next(), stats); err != nil {
			return stats, err
		}
		if config.Verbose {
			log.Info(ctx, "essay submitted", logger.Int("n", i+1), logger.Int("committed", stats.Committed))
		}
	}

	// Step 5: Verify the history and the average
	if err := verifyProfile(ctx, client, stats); err != nil {
		return stats, err
	}

	// Step 6: Logout and back in starts over
	if err := client.do(ctx, http.MethodPost, "/session/logout", nil, nil); err != nil {
		return stats, fmt.Errorf("logout failed: %w", err)
	}
	if err := login(ctx, client, stats.Identity); err != nil {
		return stats, err
	}
	if err := expectEmpty(ctx, client); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func login(ctx context.Context, client *httpClient, email string) error {
	var s sessionResponse
	if err := client.do(ctx, http.MethodPost, "/session/login", map[string]string{"email": email}, &s); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if !s.Active || s.Identity != email {
		return fmt.Errorf("%w: login returned %+v", ErrVerification, s)
	}
	return nil
}

// submit posts one essay and folds the outcome into stats.
func submit(ctx context.Context, client *httpClient, essay string, stats *Stats) error {
	var res submitResponse
	err := client.do(ctx, http.MethodPost, "/essays", map[string]string{"essay": essay}, &res)
	stats.Submitted++
	var se *statusError
	switch {
	case err == nil:
		stats.Committed++
		stats.Scores = append(stats.Scores, res.Record.Score.Domain1Score)
		return nil
	case errors.As(err, &se) && se.Status == http.StatusConflict:
		stats.Rejected++
		return nil
	case errors.As(err, &se) && se.Status == http.StatusBadGateway:
		stats.Failed++
		return nil
	default:
		return fmt.Errorf("submission failed: %w", err)
	}
}

// submitConcurrently sends the same essay twice in parallel. At most one
// of them may be running at a time, so every response is either a commit
// or a conflict.
func submitConcurrently(ctx context.Context, client *httpClient, essay string, stats *Stats) error {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	before := stats.Committed
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			local := &Stats{}
			if err := submit(ctx, client, essay, local); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			stats.Submitted += local.Submitted
			stats.Committed += local.Committed
			stats.Rejected += local.Rejected
			stats.Failed += local.Failed
			stats.Scores = append(stats.Scores, local.Scores...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	stats.ConcurrentCommitted = stats.Committed - before
	return nil
}

func expectEmpty(ctx context.Context, client *httpClient) error {
	if err := expectCount(ctx, client, 0); err != nil {
		return err
	}
	var p profileResponse
	if err := client.do(ctx, http.MethodGet, "/profile", nil, &p); err != nil {
		return fmt.Errorf("profile failed: %w", err)
	}
	if p.Summary.Count != 0 || p.Summary.AverageScore != 0 {
		return fmt.Errorf("%w: fresh session has profile %+v", ErrVerification, p.Summary)
	}
	return nil
}

func expectCount(ctx context.Context, client *httpClient, want int) error {
	var list listResponse
	if err := client.do(ctx, http.MethodGet, "/essays", nil, &list); err != nil {
		return fmt.Errorf("list essays failed: %w", err)
	}
	if list.Count != want {
		return fmt.Errorf("%w: history has %d essays, want %d", ErrVerification, list.Count, want)
	}
	return nil
}

func verifyProfile(ctx context.Context, client *httpClient, stats *Stats) error {
	if err := expectCount(ctx, client, stats.Committed); err != nil {
		return err
	}
	var p profileResponse
	if err := client.do(ctx, http.MethodGet, "/profile", nil, &p); err != nil {
		return fmt.Errorf("profile failed: %w", err)
	}
	var sum float64
	for _, s := range stats.Scores {
		sum += s
	}
	if len(stats.Scores) > 0 {
		stats.Average = sum / float64(len(stats.Scores))
	}
	if p.Summary.Count != stats.Committed {
		return fmt.Errorf("%w: profile counts %d essays, want %d", ErrVerification, p.Summary.Count, stats.Committed)
	}
	if math.Abs(p.Summary.AverageScore-stats.Average) > averageTolerance {
		return fmt.Errorf("%w: profile average %.4f, want %.4f", ErrVerification, p.Summary.AverageScore, stats.Average)
	}
	if want := fmt.Sprintf("%.2f", stats.Average); p.AverageDisplay != want {
		return fmt.Errorf("%w: average display %q, want %q", ErrVerification, p.AverageDisplay, want)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.String("identity", stats.Identity),
		logger.Int("submitted", stats.Submitted),
		logger.Int("committed", stats.Committed),
		logger.Int("concurrentCommitted", stats.ConcurrentCommitted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Float64("average", stats.Average),
		logger.Duration("duration", stats.Duration),
	)
}
