package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsedeck"
	"github.com/jpalmerr/pulsedeck/config"
	"github.com/jpalmerr/pulsedeck/dashboard"
	"github.com/jpalmerr/pulsedeck/internal/server"
	"github.com/jpalmerr/pulsedeck/internal/surface"
)

const dialTimeout = 10 * time.Second

func runPlugin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)

	port, _ := cmd.Flags().GetInt("port")
	pluginUUID, _ := cmd.Flags().GetString("pluginUUID")
	registerEvent, _ := cmd.Flags().GetString("registerEvent")
	info, _ := cmd.Flags().GetString("info")

	params := surface.Params{Port: port, PluginUUID: pluginUUID, RegisterEvent: registerEvent}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("missing host launch parameters (use 'pulsedeck watch' to run without a host): %w", err)
	}
	logHostInfo(logger, info)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return servePlugin(ctx, params, cfg, logger)
}

// servePlugin connects to the host and runs the plugin until ctx is
// cancelled or the host closes the connection.
func servePlugin(ctx context.Context, params surface.Params, cfg *config.Config, logger *slog.Logger) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	conn, err := surface.Dial(dialCtx, params, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	p, err := pulsedeck.New(conn, config.BuildOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create plugin: %w", err)
	}
	defer p.Stop()

	// the status server lives only as long as the host connection
	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()

	if err := startStatusServer(serveCtx, cfg, p, logger); err != nil {
		return err
	}

	logger.Info("pulsedeck started",
		"version", version,
		"poll_interval", cfg.PollInterval.Duration().String(),
		"alert_interval", cfg.AlertInterval.Duration().String(),
	)

	if err := conn.Serve(serveCtx, surfaceHandler{plugin: p}); err != nil {
		return fmt.Errorf("host connection failed: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// startStatusServer starts the local status API when a port is configured.
func startStatusServer(ctx context.Context, cfg *config.Config, p *pulsedeck.Plugin, logger *slog.Logger) error {
	if cfg.StatusPort == 0 {
		return nil
	}
	srv := server.NewServer(p, cfg.StatusPort, dashboard.Assets, "", p.MetricsHandler(), logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start status server: %w", err)
	}
	return nil
}

// logHostInfo logs the application details the host passes in -info.
// The payload is informational; a malformed one is only logged.
func logHostInfo(logger *slog.Logger, raw string) {
	if raw == "" {
		return
	}
	var info struct {
		Application struct {
			Version  string `json:"version"`
			Platform string `json:"platform"`
			Language string `json:"language"`
		} `json:"application"`
		Devices []json.RawMessage `json:"devices"`
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		logger.Warn("ignoring malformed host info", "error", err)
		return
	}
	logger.Info("host info",
		"host_version", info.Application.Version,
		"platform", info.Application.Platform,
		"language", info.Application.Language,
		"devices", len(info.Devices),
	)
}

// surfaceHandler forwards host events to the plugin.
type surfaceHandler struct {
	plugin *pulsedeck.Plugin
}

func (h surfaceHandler) Appear(ctx context.Context, key string, s surface.Settings) {
	h.plugin.Appear(ctx, key, toSettings(s))
}

func (h surfaceHandler) Disappear(ctx context.Context, key string) {
	h.plugin.Disappear(ctx, key)
}

func (h surfaceHandler) SettingsChanged(ctx context.Context, key string, s surface.Settings) {
	h.plugin.SettingsChanged(ctx, key, toSettings(s))
}

func (h surfaceHandler) Activate(ctx context.Context, key string) {
	h.plugin.Activate(ctx, key)
}

// toSettings converts the host's per-button settings. Zero and negative
// numbers fall back to the plugin defaults.
func toSettings(s surface.Settings) pulsedeck.Settings {
	out := pulsedeck.Settings{URL: s.Endpoint}
	if code := s.HealthyStatusCode.Int(); code > 0 {
		out.HealthyStatusCode = code
	}
	if secs := s.CheckSeconds.Int(); secs > 0 {
		out.CheckInterval = time.Duration(secs) * time.Second
	}
	return out
}
