// Package pulsedeck monitors HTTP health endpoints behind the buttons of a
// control surface and drives each button's alert and "OK" visuals.
//
// Each button carries a URL, the status code that counts as healthy, and a
// minimum interval between checks. PulseDeck checks every visible button on
// a poll loop, re-raises the alert visual on unhealthy buttons on a faster
// alert loop, and shows "OK" once when an unhealthy button recovers.
//
// # Quick Start
//
// Implement [Host] for the control surface and forward its events:
//
//	p, err := pulsedeck.New(host, pulsedeck.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer p.Stop()
//
//	p.Appear(ctx, key, pulsedeck.Settings{
//	    URL:               "https://api.example.com/health",
//	    HealthyStatusCode: 200,
//	    CheckInterval:     10 * time.Second,
//	})
//
// # Scheduling
//
// The poll loop runs immediately when a button appears and then every poll
// interval (30s by default). An endpoint is due when its check interval has
// elapsed, less a two second tolerance for timer jitter; hidden buttons are
// not checked. Editing a button's settings or pressing it checks it at once.
// Checks across endpoints run concurrently, and a result whose URL or status
// code was changed while it was in flight is discarded.
//
// # Architecture
//
//   - internal/checker: single HTTP health check with a per-request deadline
//   - internal/registry: keyed endpoint records and transition detection
//   - internal/poller: due-ness scheduling and the two periodic loops
//   - internal/surface: websocket transport to the control-surface host
//   - internal/server: optional local status API and status page
//   - internal/metrics: Prometheus collectors
//   - config: YAML configuration for the pulsedeck command
package pulsedeck
