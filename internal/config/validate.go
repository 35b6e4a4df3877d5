package config

import (
	"errors"
	"fmt"
	"net"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// maxHistoryCapacity keeps a mistyped capacity from reserving gigabytes.
const maxHistoryCapacity = 10_000_000

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or every problem joined with errors.Join.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateAddr(cfg.ListenAddr); err != nil {
		errs = append(errs, ValidationError{Field: "listen_addr", Message: err.Error()})
	}

	if cfg.MetricsAddr != "" {
		if err := validateAddr(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{Field: "metrics_addr", Message: err.Error()})
		}
	}

	if cfg.HistoryCapacity < 1 {
		errs = append(errs, ValidationError{
			Field:   "history_capacity",
			Message: "must be at least 1",
		})
	}
	if cfg.HistoryCapacity > maxHistoryCapacity {
		errs = append(errs, ValidationError{
			Field:   "history_capacity",
			Message: fmt.Sprintf("must be at most %d (got %d)", maxHistoryCapacity, cfg.HistoryCapacity),
		})
	}

	if cfg.ReadTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "read_timeout", Message: "must be positive"})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "write_timeout", Message: "must be positive"})
	}
	if cfg.PollInterval <= 0 {
		errs = append(errs, ValidationError{Field: "poll_interval", Message: "must be positive"})
	}
	if cfg.ShutdownGrace < 0 {
		errs = append(errs, ValidationError{Field: "shutdown_grace", Message: "must not be negative"})
	}
	if cfg.AcceptRetries < 0 {
		errs = append(errs, ValidationError{Field: "accept_retries", Message: "must not be negative"})
	}

	// Backoff settings
	if cfg.BackoffInitial <= 0 {
		errs = append(errs, ValidationError{Field: "backoff_initial", Message: "must be positive"})
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		errs = append(errs, ValidationError{Field: "backoff_max", Message: "must be >= backoff_initial"})
	}
	if cfg.BackoffMultiply < 1.0 {
		errs = append(errs, ValidationError{Field: "backoff_multiply", Message: "must be >= 1.0"})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[cfg.LogLevel] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.LogLevel),
		})
	}

	return errors.Join(errs...)
}

// validateAddr checks a host:port listen address. The host may be empty.
func validateAddr(addr string) error {
	if addr == "" {
		return errors.New("must not be empty")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if port == "" {
		return fmt.Errorf("address %q has no port", addr)
	}
	return nil
}
