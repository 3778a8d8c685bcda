package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsedeck"
	"github.com/jpalmerr/pulsedeck/config"
)

// watchCmd monitors the configured endpoints without a host.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor configured endpoints without a host",
	Long: `Monitor the endpoints listed in the config file without a control surface.

Every endpoint behaves like a visible button. Alerts and recoveries are
written to the log instead of a button, and the status server (if
status_port is set) shows the live state.

The command runs until interrupted (Ctrl+C) or receives SIGTERM.

Example config:
  status_port: 9090
  endpoints:
    - key: api
      url: https://api.example.com/health
      check_seconds: 10

Example:
  pulsedeck watch -c config.yaml`,
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch(ctx, cfg, logger)
}

// watch runs the plugin against a logging host until ctx is cancelled.
func watch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	buttons := config.BuildButtons(cfg)
	if len(buttons) == 0 {
		return errors.New("no endpoints configured")
	}

	p, err := pulsedeck.New(logHost{logger: logger}, config.BuildOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("failed to create plugin: %w", err)
	}
	defer p.Stop()

	if err := startStatusServer(ctx, cfg, p, logger); err != nil {
		return err
	}

	for _, b := range buttons {
		p.Appear(ctx, b.Key, b.Settings)
	}
	logger.Info("watching endpoints", "count", len(buttons))

	<-ctx.Done()
	return nil
}

// logHost stands in for the control surface, writing visuals to the log.
type logHost struct {
	logger *slog.Logger
}

func (h logHost) ShowAlert(key string) {
	h.logger.Warn("ALERT", "key", key)
}

func (h logHost) ShowOK(key string) {
	h.logger.Info("OK", "key", key)
}

func (h logHost) OpenURL(url string) {
	h.logger.Info("open url", "url", url)
}
