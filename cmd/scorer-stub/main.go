package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/essayscore/internal/adapters/scoring"
	"github.com/okian/essayscore/internal/adapters/scoring/stub"
	"github.com/okian/essayscore/internal/config"
	"github.com/okian/essayscore/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Named("scorer-stub")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	opts := []stub.Option{
		stub.WithLatencyRange(
			time.Duration(cfg.StubLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.StubLatencyMaxMS)*time.Millisecond,
		),
		stub.WithSeed(cfg.StubSeed),
		stub.WithLogger(log),
	}
	for _, e := range failingEndpoints(cfg.StubFailing) {
		opts = append(opts, stub.WithFailing(e))
	}

	srv := &http.Server{
		Addr:              cfg.StubAddr,
		Handler:           stub.New(opts...).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "simulated scoring service listening", logger.String("addr", cfg.StubAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "scoring stub failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutdown failed", logger.Error(err))
	}
}

// failingEndpoints keeps the known endpoint names of a comma separated list.
func failingEndpoints(raw string) []string {
	var out []string
	for _, r := range strings.Split(raw, ",") {
		switch e := strings.TrimSpace(r); e {
		case scoring.EndpointScore, scoring.EndpointFeedback:
			out = append(out, e)
		}
	}
	return out
}
