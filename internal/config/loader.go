package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix     = "ESSAY_"
	EnvConfigPath = "ESSAY_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if ESSAY_CONFIG is set
//  3. env (prefix ESSAY_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ESSAY_SCORING_BASE_URL -> scoring_base_url. Underscores are kept so the
	// flat keys match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		if s == EnvConfigPath {
			return ""
		}
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ScoringBaseURL) == "":
		return fmt.Errorf("%w: scoring_base_url must not be empty", ErrInvalidConfig)
	case c.ScoringTimeoutMS <= 0:
		return fmt.Errorf("%w: scoring_timeout_ms must be positive", ErrInvalidConfig)
	case c.ScoringRateLimit < 0:
		return fmt.Errorf("%w: scoring_rate_limit must not be negative", ErrInvalidConfig)
	case c.ScoringBurst < 0:
		return fmt.Errorf("%w: scoring_burst must not be negative", ErrInvalidConfig)
	case c.StubLatencyMinMS < 0 || c.StubLatencyMaxMS < c.StubLatencyMinMS:
		return fmt.Errorf("%w: stub latency range is inverted", ErrInvalidConfig)
	}
	return nil
}
