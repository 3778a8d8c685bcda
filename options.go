package pulsedeck

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// pluginConfig holds mutable state during Plugin construction.
type pluginConfig struct {
	logger         *slog.Logger
	pollInterval   time.Duration
	alertInterval  time.Duration
	checkTimeout   time.Duration
	maxConcurrency int
	metrics        bool
	httpClient     *http.Client
}

// Option is a function that configures a [Plugin] during construction.
//
// Options return an error if validation fails.
type Option func(*pluginConfig) error

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *pluginConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithPollInterval sets the cadence of the poll loop. Defaults to 30 seconds.
//
// The poll interval is the resolution of the scheduler: an endpoint whose
// check interval is shorter than the poll interval is still checked at most
// once per tick.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *pluginConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithAlertInterval sets how often the alert visual is re-raised on offline
// buttons. Defaults to 4 seconds.
//
// Returns an error if the duration is zero or negative.
func WithAlertInterval(d time.Duration) Option {
	return func(cfg *pluginConfig) error {
		if d <= 0 {
			return errors.New("alert interval must be positive")
		}
		cfg.alertInterval = d
		return nil
	}
}

// WithCheckTimeout sets the deadline of each health check. Defaults to
// 3 seconds.
//
// Returns an error if the duration is zero or negative.
func WithCheckTimeout(d time.Duration) Option {
	return func(cfg *pluginConfig) error {
		if d <= 0 {
			return errors.New("check timeout must be positive")
		}
		cfg.checkTimeout = d
		return nil
	}
}

// WithMaxConcurrency caps how many checks are on the wire at once.
// Zero, the default, means unbounded.
//
// Returns an error if the value is negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *pluginConfig) error {
		if n < 0 {
			return errors.New("max concurrency cannot be negative")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithMetrics enables Prometheus collectors, exposed through
// [Plugin.MetricsHandler].
func WithMetrics() Option {
	return func(cfg *pluginConfig) error {
		cfg.metrics = true
		return nil
	}
}

// WithHTTPClient replaces the client used for health checks. The check
// timeout still applies per request.
//
// Returns an error if the client is nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *pluginConfig) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = hc
		return nil
	}
}
