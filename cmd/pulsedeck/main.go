// Package main is the entry point for the pulsedeck plugin binary.
//
// The control-surface host launches the binary with its connection flags:
//
//	pulsedeck -port 28196 -pluginUUID <uuid> -registerEvent registerPlugin -info '{...}'
//
// The same binary offers a few commands for use from a terminal:
//
//	pulsedeck watch -c config.yaml    # monitor configured endpoints without a host
//	pulsedeck check <url>             # run one health check
//	pulsedeck validate -c config.yaml # validate configuration
//	pulsedeck version                 # show version info
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsedeck/config"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd runs the plugin when launched by the host.
var rootCmd = &cobra.Command{
	Use:   "pulsedeck",
	Short: "Endpoint health monitor for control-surface buttons",
	Long: `PulseDeck turns control-surface buttons into endpoint health monitors.

Each button carries a URL and the status code that counts as healthy.
PulseDeck checks visible buttons on a poll loop, flashes an alert on
unhealthy ones until they recover, and shows OK once on recovery.
Pressing a button checks it at once and opens its URL.

The host starts the plugin with -port, -pluginUUID, -registerEvent and
-info. An optional config file tunes the loops and enables the local
status API:

  poll_interval: 30s
  alert_interval: 4s
  check_timeout: 3s
  status_port: 9090`,
	SilenceUsage: true,
	RunE:         runPlugin,
}

// hostFlags are the launch flags the host passes with a single dash.
var hostFlags = []string{"port", "pluginUUID", "registerEvent", "info"}

func init() {
	rootCmd.Flags().Int("port", 0, "host websocket port")
	rootCmd.Flags().String("pluginUUID", "", "plugin instance UUID assigned by the host")
	rootCmd.Flags().String("registerEvent", "", "event name used to register with the host")
	rootCmd.Flags().String("info", "", "host and device information as JSON")
	rootCmd.Flags().StringP("config", "c", "", "path to config file (optional)")

	rootCmd.AddCommand(versionCmd)
}

// normalizeArgs rewrites the host's single-dash long flags (-port 1234)
// into the double-dash form pflag parses. Other arguments are unchanged.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name, _, _ := strings.Cut(arg[1:], "=")
		for _, f := range hostFlags {
			if name == f {
				out[i] = "-" + arg
				break
			}
		}
	}
	return out
}

// newLogger creates the process logger on w from the log config.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// loadConfig reads the --config flag, falling back to defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pulsedeck binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pulsedeck %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}
