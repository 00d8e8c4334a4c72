// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Load errors are wrapped with this package's sentinel kinds.
package config

import "context"

// DefaultPrompt is the fixed essay prompt shown to every user.
const DefaultPrompt = "Write about patience. Being patient means that you are understanding and tolerant. " +
	"A patient person experiences difficulties without complaining. Do only one of the following: " +
	"write a story about a time when you were patient OR write a story about a time when someone you " +
	"know was patient OR write a story in your own way about patience."

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address of the API, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ScoringBaseURL points at the external scoring service.
	ScoringBaseURL string `koanf:"scoring_base_url"`

	// ScoringTimeoutMS bounds each scoring call.
	ScoringTimeoutMS int `koanf:"scoring_timeout_ms"`

	// ScoringRateLimit caps outbound scoring calls per second; 0 disables the limiter.
	ScoringRateLimit float64 `koanf:"scoring_rate_limit"`
	ScoringBurst     int     `koanf:"scoring_burst"`

	// ConcurrentScoring issues the score and feedback calls in parallel.
	ConcurrentScoring bool `koanf:"concurrent_scoring"`

	// DefaultPrompt is used when a submission carries no prompt.
	DefaultPrompt string `koanf:"default_prompt"`

	// Stub* configure the simulated scoring service (cmd/scorer-stub).
	StubAddr         string `koanf:"stub_addr"`
	StubLatencyMinMS int    `koanf:"stub_latency_min_ms"`
	StubLatencyMaxMS int    `koanf:"stub_latency_max_ms"`
	StubSeed         int64  `koanf:"stub_seed"`
	// StubFailing lists endpoints answering 500, comma separated.
	StubFailing string `koanf:"stub_failing"`
}

// New creates a Config holding the defaults. Context is accepted first to
// follow the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		ScoringBaseURL:    "http://localhost:8000",
		ScoringTimeoutMS:  60_000,
		ScoringRateLimit:  0,
		ScoringBurst:      2,
		ConcurrentScoring: true,
		DefaultPrompt:     DefaultPrompt,
		StubAddr:          ":8000",
		StubLatencyMinMS:  80,
		StubLatencyMaxMS:  150,
		StubSeed:          42,
	}
}
