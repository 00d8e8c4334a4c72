package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/essayscore/internal/smoke"
	"github.com/okian/essayscore/pkg/logger"
)

// Default configuration constants.
const (
	defaultSubmissions = 5
	defaultTimeout     = 90 * time.Second
	defaultRunTimeout  = 15 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		email       = flag.String("email", "", "Identity to log in as (default: generated)")
		submissions = flag.Int("submissions", defaultSubmissions, "Sequential submissions")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed        = flag.Int64("seed", 1, "Seed for generated essays")
		verbose     = flag.Bool("verbose", false, "Log every submission")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		smoke.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	_, err := smoke.Run(ctx, &smoke.Config{
		BaseURL:     *baseURL,
		Email:       *email,
		Submissions: *submissions,
		Timeout:     *timeout,
		Seed:        *seed,
		Verbose:     *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "smoke run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
	logger.Get().Info(ctx, "smoke run passed")
}
