package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsedeck/internal/checker"
	"github.com/jpalmerr/pulsedeck/internal/registry"
)

// checkCmd runs one health check, the same way a button would.
var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Run one health check against a URL",
	Long: `Run a single health check against a URL and report the verdict.

The endpoint is healthy only if it answers with exactly the expected status
code. Useful for testing a button's settings before saving them.

Exit codes:
  0 - Endpoint is healthy
  1 - Endpoint is unhealthy or unreachable

Example:
  pulsedeck check https://api.example.com/health
  pulsedeck check http://localhost:8080/ready --status 204 --timeout 1s`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Int("status", registry.DefaultHealthyStatusCode, "status code considered healthy")
	checkCmd.Flags().Duration("timeout", checker.DefaultTimeout, "check timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	target := args[0]
	if u, err := url.Parse(target); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid url %q: scheme must be http or https", target)
	}

	status, _ := cmd.Flags().GetInt("status")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	c := checker.New(checker.WithTimeout(timeout))
	defer c.Close()

	result := c.Check(cmd.Context(), target, status)

	out := cmd.OutOrStdout()
	switch {
	case result.Err != nil:
		fmt.Fprintf(out, "OFFLINE  %s  (%s)\n", target, result.Err)
	case result.Online:
		fmt.Fprintf(out, "ONLINE   %s  status=%d latency=%dms\n", target, result.StatusCode, result.Latency.Milliseconds())
	default:
		fmt.Fprintf(out, "OFFLINE  %s  status=%d want=%d latency=%dms\n",
			target, result.StatusCode, status, result.Latency.Milliseconds())
	}

	if !result.Online {
		return fmt.Errorf("endpoint unhealthy")
	}
	return nil
}
