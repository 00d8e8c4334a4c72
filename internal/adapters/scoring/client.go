// Package scoring is the HTTP client of the external essay scoring service.
//
// The service exposes two independent endpoints taking the same body:
//
//	POST /score-essay        {"essay": "..."} -> Score
//	POST /generate-feedback  {"essay": "..."} -> {"<trait>": "<text>", ...}
//
// Each call is attempted exactly once.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/essayscore/internal/domain/model"
	"github.com/okian/essayscore/pkg/logger"
	"github.com/okian/essayscore/pkg/metrics"
	"golang.org/x/time/rate"
)

// Endpoint paths, without the leading slash.
const (
	EndpointScore    = "score-essay"
	EndpointFeedback = "generate-feedback"
)

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 1 << 20
)

// Scorer obtains a score and feedback for an essay.
type Scorer interface {
	RequestScore(ctx context.Context, essay string) (model.Score, error)
	RequestFeedback(ctx context.Context, essay string) (model.Feedback, error)
}

// Request is the body of both endpoints.
type Request struct {
	Essay string `json:"essay"`
}

// Client implements Scorer over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     logger.Logger
}

var _ Scorer = (*Client)(nil)

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// scoreWire mirrors Score with pointers so missing fields are detected.
type scoreWire struct {
	Domain1Score  *float64 `json:"domain1_score"`
	Rater1Domain1 *float64 `json:"rater1_domain1"`
	Rater2Domain1 *float64 `json:"rater2_domain1"`
	Rater1Trait1  *float64 `json:"rater1_trait1"`
	Rater1Trait2  *float64 `json:"rater1_trait2"`
	Rater1Trait3  *float64 `json:"rater1_trait3"`
	Rater1Trait4  *float64 `json:"rater1_trait4"`
	Rater2Trait1  *float64 `json:"rater2_trait1"`
	Rater2Trait2  *float64 `json:"rater2_trait2"`
	Rater2Trait3  *float64 `json:"rater2_trait3"`
	Rater2Trait4  *float64 `json:"rater2_trait4"`
}

func (w scoreWire) toScore() (model.Score, error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"domain1_score", w.Domain1Score},
		{"rater1_domain1", w.Rater1Domain1},
		{"rater2_domain1", w.Rater2Domain1},
		{"rater1_trait1", w.Rater1Trait1},
		{"rater1_trait2", w.Rater1Trait2},
		{"rater1_trait3", w.Rater1Trait3},
		{"rater1_trait4", w.Rater1Trait4},
		{"rater2_trait1", w.Rater2Trait1},
		{"rater2_trait2", w.Rater2Trait2},
		{"rater2_trait3", w.Rater2Trait3},
		{"rater2_trait4", w.Rater2Trait4},
	}
	var missing []string
	for _, f := range fields {
		if f.v == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return model.Score{}, fmt.Errorf("missing fields %s", strings.Join(missing, ", "))
	}
	return model.Score{
		Domain1Score:  *w.Domain1Score,
		Rater1Domain1: *w.Rater1Domain1,
		Rater2Domain1: *w.Rater2Domain1,
		Rater1Trait1:  *w.Rater1Trait1,
		Rater1Trait2:  *w.Rater1Trait2,
		Rater1Trait3:  *w.Rater1Trait3,
		Rater1Trait4:  *w.Rater1Trait4,
		Rater2Trait1:  *w.Rater2Trait1,
		Rater2Trait2:  *w.Rater2Trait2,
		Rater2Trait3:  *w.Rater2Trait3,
		Rater2Trait4:  *w.Rater2Trait4,
	}, nil
}

// RequestScore calls POST /score-essay.
func (c *Client) RequestScore(ctx context.Context, essay string) (model.Score, error) {
	var wire scoreWire
	if err := c.post(ctx, EndpointScore, essay, &wire); err != nil {
		return model.Score{}, err
	}
	score, err := wire.toScore()
	if err != nil {
		return model.Score{}, c.fail(ctx, &ServiceError{Endpoint: EndpointScore, Err: decodeError{err: err}})
	}
	return score, nil
}

// RequestFeedback calls POST /generate-feedback.
func (c *Client) RequestFeedback(ctx context.Context, essay string) (model.Feedback, error) {
	var fb model.Feedback
	if err := c.post(ctx, EndpointFeedback, essay, &fb); err != nil {
		return nil, err
	}
	if len(fb) == 0 {
		return nil, c.fail(ctx, &ServiceError{Endpoint: EndpointFeedback, Err: decodeError{err: errors.New("empty feedback")}})
	}
	return fb, nil
}

// errorBody is the error shape of the scoring service.
type errorBody struct {
	Detail string `json:"detail"`
}

func (c *Client) post(ctx context.Context, endpoint, essay string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.fail(ctx, &ServiceError{Endpoint: endpoint, Err: limiterError{err: err}})
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(Request{Essay: essay})
	if err != nil {
		return c.fail(ctx, &ServiceError{Endpoint: endpoint, Err: fmt.Errorf("marshal request: %w", err)})
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return c.fail(ctx, &ServiceError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latencyMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordScoringRequest(endpoint, "error", latencyMs)
		return c.fail(ctx, &ServiceError{Endpoint: endpoint, Err: err})
	}
	defer resp.Body.Close()
	metrics.RecordScoringRequest(endpoint, strconv.Itoa(resp.StatusCode), latencyMs)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return c.fail(ctx, &ServiceError{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Detail != "" {
			msg = eb.Detail
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return c.fail(ctx, &ServiceError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: errors.New(msg)})
	}

	if err := json.Unmarshal(data, out); err != nil {
		return c.fail(ctx, &ServiceError{Endpoint: endpoint, Err: decodeError{err: err}})
	}

	c.logger.Debug(ctx, "scoring call succeeded",
		logger.String("endpoint", endpoint),
		logger.Float64("latencyMs", latencyMs),
	)
	return nil
}

func (c *Client) fail(ctx context.Context, err *ServiceError) error {
	metrics.RecordScoringError(err.Endpoint, err.Kind())
	metrics.RecordErrorByComponent("scoring", err.Kind())
	c.logger.Warn(ctx, "scoring call failed",
		logger.String("endpoint", err.Endpoint),
		logger.String("kind", err.Kind()),
		logger.Int("status", err.StatusCode),
		logger.Error(err.Err),
	)
	return err
}
