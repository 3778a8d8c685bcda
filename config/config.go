// Package config provides YAML configuration parsing for PulseDeck.
//
// The file is optional when running under a control-surface host: every
// field has a default, and per-button settings come from the host. The
// endpoints list is only used by headless mode (pulsedeck watch), which
// monitors a fixed set of endpoints without a host.
//
// Example configuration:
//
//	poll_interval: 30s
//	alert_interval: 4s
//	check_timeout: 3s
//	status_port: 9090
//
//	log:
//	  level: info
//	  format: json
//
//	endpoints:
//	  - key: api
//	    url: https://${API_HOST:-api.example.com}/health
//	    healthy_status_code: 200
//	    check_seconds: 10
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Parse] and [Default].
const (
	DefaultPollInterval  = 30 * time.Second
	DefaultAlertInterval = 4 * time.Second
	DefaultCheckTimeout  = 3 * time.Second
)

// minimum periods; anything faster hammers the targets or the host
const (
	minPollInterval  = 1 * time.Second
	minAlertInterval = 250 * time.Millisecond
	minCheckTimeout  = 100 * time.Millisecond
)

// Config is the root configuration structure for PulseDeck.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// PollInterval is the base cadence of the poll loop. Defaults to 30s.
	// No endpoint is checked more often than this.
	PollInterval Duration `yaml:"poll_interval"`

	// AlertInterval is the cadence of the alert loop. Defaults to 4s.
	AlertInterval Duration `yaml:"alert_interval"`

	// CheckTimeout bounds each health check. Defaults to 3s.
	CheckTimeout Duration `yaml:"check_timeout"`

	// MaxConcurrency caps checks on the wire at once. 0 means unbounded.
	MaxConcurrency int `yaml:"max_concurrency"`

	// StatusPort enables the local status API when non-zero.
	StatusPort int `yaml:"status_port"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// Endpoints are monitored by headless mode only.
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is json or text. Defaults to json.
	Format string `yaml:"format"`
}

// SlogLevel returns the slog level for Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EndpointConfig defines one headless-mode endpoint, equivalent to the
// settings of one button.
type EndpointConfig struct {
	// Key identifies the endpoint, like a button context.
	Key string `yaml:"key"`

	// URL is the health check URL.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// HealthyStatusCode is the status considered healthy. Defaults to 200.
	HealthyStatusCode int `yaml:"healthy_status_code"`

	// CheckSeconds is the minimum seconds between checks. Defaults to 30.
	CheckSeconds int `yaml:"check_seconds"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file. An empty path returns
// [Default].
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.AlertInterval == 0 {
		c.AlertInterval = Duration(DefaultAlertInterval)
	}
	if c.CheckTimeout == 0 {
		c.CheckTimeout = Duration(DefaultCheckTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.AlertInterval.Duration() < minAlertInterval {
		return fmt.Errorf("alert_interval must be at least %s, got %s", minAlertInterval, c.AlertInterval.Duration())
	}
	if c.CheckTimeout.Duration() < minCheckTimeout {
		return fmt.Errorf("check_timeout must be at least %s, got %s", minCheckTimeout, c.CheckTimeout.Duration())
	}
	if c.CheckTimeout.Duration() >= c.PollInterval.Duration() {
		return fmt.Errorf("check_timeout (%s) must be shorter than poll_interval (%s)",
			c.CheckTimeout.Duration(), c.PollInterval.Duration())
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency cannot be negative, got %d", c.MaxConcurrency)
	}
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		return fmt.Errorf("status_port must be between 0 and 65535, got %d", c.StatusPort)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}

	seen := make(map[string]struct{}, len(c.Endpoints))
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]

		if ep.Key == "" {
			return fmt.Errorf("endpoints[%d]: key is required", i)
		}
		if _, dup := seen[ep.Key]; dup {
			return fmt.Errorf("endpoints[%d]: duplicate key %q", i, ep.Key)
		}
		seen[ep.Key] = struct{}{}

		if ep.URL == "" {
			return fmt.Errorf("endpoints[%d] (%s): url is required", i, ep.Key)
		}
		expanded, err := expandEnvVars(ep.URL)
		if err != nil {
			return fmt.Errorf("endpoints[%d] (%s): url: %w", i, ep.Key, err)
		}
		ep.URL = expanded

		parsedURL, err := url.Parse(ep.URL)
		if err != nil {
			return fmt.Errorf("endpoints[%d] (%s): invalid url: %w", i, ep.Key, err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("endpoints[%d] (%s): url scheme must be http or https, got %q", i, ep.Key, parsedURL.Scheme)
		}

		if ep.HealthyStatusCode != 0 && (ep.HealthyStatusCode < 100 || ep.HealthyStatusCode > 599) {
			return fmt.Errorf("endpoints[%d] (%s): healthy_status_code must be between 100 and 599, got %d",
				i, ep.Key, ep.HealthyStatusCode)
		}
		if ep.CheckSeconds < 0 {
			return fmt.Errorf("endpoints[%d] (%s): check_seconds cannot be negative, got %d",
				i, ep.Key, ep.CheckSeconds)
		}
	}

	return nil
}
