package config

import (
	"log/slog"
	"sort"
	"time"

	"github.com/jpalmerr/pulsedeck"
)

// Button is one headless-mode endpoint ready to hand to a [pulsedeck.Plugin].
type Button struct {
	Key      string
	Settings pulsedeck.Settings
}

// BuildOptions converts parsed configuration into plugin options.
// logger may be nil, in which case the plugin uses [slog.Default].
func BuildOptions(cfg *Config, logger *slog.Logger) []pulsedeck.Option {
	opts := []pulsedeck.Option{
		pulsedeck.WithPollInterval(cfg.PollInterval.Duration()),
		pulsedeck.WithAlertInterval(cfg.AlertInterval.Duration()),
		pulsedeck.WithCheckTimeout(cfg.CheckTimeout.Duration()),
		pulsedeck.WithMaxConcurrency(cfg.MaxConcurrency),
	}
	if logger != nil {
		opts = append(opts, pulsedeck.WithLogger(logger))
	}
	// metrics are only reachable through the status server
	if cfg.StatusPort > 0 {
		opts = append(opts, pulsedeck.WithMetrics())
	}
	return opts
}

// BuildButtons converts the configured endpoints into buttons, sorted by key.
func BuildButtons(cfg *Config) []Button {
	buttons := make([]Button, 0, len(cfg.Endpoints))
	for _, ec := range cfg.Endpoints {
		buttons = append(buttons, Button{
			Key: ec.Key,
			Settings: pulsedeck.Settings{
				URL:               ec.URL,
				HealthyStatusCode: ec.HealthyStatusCode,
				CheckInterval:     time.Duration(ec.CheckSeconds) * time.Second,
			},
		})
	}

	// deterministic order for logs and the initial poll
	sort.Slice(buttons, func(i, j int) bool {
		return buttons[i].Key < buttons[j].Key
	})
	return buttons
}
