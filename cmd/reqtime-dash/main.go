// Package main provides the reqtime-dash entry point.
//
// reqtime-dash listens for request timing records on TCP port 2398 and shows
// the most recent ones in a live terminal dashboard, each compared with its
// origin's running average. It takes no command-line flags.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/randomizedcoder/go-reqtime-dash/internal/config"
	"github.com/randomizedcoder/go-reqtime-dash/internal/logging"
	"github.com/randomizedcoder/go-reqtime-dash/internal/orchestrator"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/reqtime-dash
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.FromEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: reqtime-dash needs a terminal on stdout")
		return 1
	}

	// The dashboard owns the terminal, so logs only go to a file.
	base, closer, err := logging.OpenFile(cfg.LogFile, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closer.Close()

	recent := logging.NewRecentHandler(base.Handler(), slog.LevelWarn)
	logger := slog.New(recent)
	logging.SetDefault(logger)

	opts := orchestrator.Options{Recent: recent}
	if cfg.LogFile != "" {
		if w, ok := closer.(io.Writer); ok {
			opts.MetricsDump = w
		}
	}

	logger.Info("starting",
		"version", version,
		"listen_addr", cfg.ListenAddr,
		"history_capacity", cfg.HistoryCapacity,
		"metrics_addr", cfg.MetricsAddr,
	)

	orch := orchestrator.New(cfg, logger, opts)
	if err := orch.Listen(); err != nil {
		logger.Error("listen_failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := orch.Run(context.Background()); err != nil {
		logger.Error("orchestrator_failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}
