// Package config provides configuration management for reqtime-dash.
//
// The dashboard has no command-line flags: behaviour is fixed at start.
// A few diagnostics-only settings can be changed through REQTIME_*
// environment variables (see LoadEnv).
package config

import (
	"fmt"
	"time"

	"github.com/randomizedcoder/go-reqtime-dash/internal/protocol"
)

// Config holds all configuration options for the dashboard.
type Config struct {
	// Ingestion
	ListenAddr    string        `json:"listen_addr"`
	ReadTimeout   time.Duration `json:"read_timeout"`  // per-connection read bound
	WriteTimeout  time.Duration `json:"write_timeout"` // ack write bound
	AcceptRetries int           `json:"accept_retries"`

	// Accept retry backoff
	BackoffInitial  time.Duration `json:"backoff_initial"`
	BackoffMax      time.Duration `json:"backoff_max"`
	BackoffMultiply float64       `json:"backoff_multiply"`

	// State
	HistoryCapacity int `json:"history_capacity"`

	// Dashboard
	PollInterval  time.Duration `json:"poll_interval"`
	ShutdownGrace time.Duration `json:"shutdown_grace"`

	// Observability
	MetricsAddr string `json:"metrics_addr"` // empty = disabled
	LogFile     string `json:"log_file"`     // empty = discard (the TUI owns the terminal)
	LogFormat   string `json:"log_format"`   // json, text
	LogLevel    string `json:"log_level"`
}

// DefaultConfig returns a Config with the fixed production defaults.
func DefaultConfig() *Config {
	return &Config{
		// Ingestion
		ListenAddr:    fmt.Sprintf(":%d", protocol.DefaultPort),
		ReadTimeout:   2 * time.Second,
		WriteTimeout:  time.Second,
		AcceptRetries: 1,

		// Accept retry backoff
		BackoffInitial:  50 * time.Millisecond,
		BackoffMax:      time.Second,
		BackoffMultiply: 1.7,

		// State
		HistoryCapacity: 10000,

		// Dashboard
		PollInterval:  10 * time.Millisecond,
		ShutdownGrace: 100 * time.Millisecond,

		// Observability
		LogFormat: "json",
		LogLevel:  "info",
	}
}
