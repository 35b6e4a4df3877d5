package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables read by LoadEnv.
const (
	EnvLogFile         = "REQTIME_LOG_FILE"
	EnvLogFormat       = "REQTIME_LOG_FORMAT"
	EnvLogLevel        = "REQTIME_LOG_LEVEL"
	EnvMetricsAddr     = "REQTIME_METRICS_ADDR"
	EnvHistoryCapacity = "REQTIME_HISTORY_CAPACITY"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnvironment returns DefaultConfig overridden by the process environment.
func FromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv applies REQTIME_* overrides to cfg. Unset variables leave the
// current value untouched. Parse errors are joined.
func LoadEnv(cfg *Config, lookup LookupFunc) error {
	var errs []error

	if v, ok := lookup(EnvLogFile); ok {
		cfg.LogFile = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvHistoryCapacity); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "history_capacity",
				Message: fmt.Sprintf("%s must be an integer (got %q)", EnvHistoryCapacity, v),
			})
		} else {
			cfg.HistoryCapacity = n
		}
	}

	return errors.Join(errs...)
}
