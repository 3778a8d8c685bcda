package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pulsedeck"
)

// terminalHost prints button visuals instead of drawing them.
type terminalHost struct{}

func (terminalHost) ShowAlert(key string) { fmt.Printf("  [%s] ⚠ ALERT\n", key) }
func (terminalHost) ShowOK(key string)    { fmt.Printf("  [%s] ✓ OK\n", key) }
func (terminalHost) OpenURL(url string)   { fmt.Printf("  open %s\n", url) }

func main() {
	// start mock server (see mock_server.go)
	go StartMockHealthServer("127.0.0.1:9999")
	time.Sleep(100 * time.Millisecond)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	p, err := pulsedeck.New(terminalHost{},
		pulsedeck.WithLogger(logger),
		pulsedeck.WithPollInterval(5*time.Second),
		pulsedeck.WithAlertInterval(2*time.Second),
	)
	if err != nil {
		slog.Error("failed to create pulsedeck", "error", err)
		os.Exit(1)
	}
	defer p.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// three buttons: two mock services and one that expects 204 from a 200 endpoint
	p.Appear(ctx, "users", pulsedeck.Settings{URL: "http://127.0.0.1:9999/health?svc=users", CheckInterval: 5 * time.Second})
	p.Appear(ctx, "orders", pulsedeck.Settings{URL: "http://127.0.0.1:9999/health?svc=orders", CheckInterval: 10 * time.Second})
	p.Appear(ctx, "strict", pulsedeck.Settings{URL: "http://127.0.0.1:9999/health?svc=strict", HealthyStatusCode: 204})

	fmt.Println()
	fmt.Println("  PulseDeck demo: 3 buttons against a mock health server on :9999")
	fmt.Println("  Alerts repeat every 2s while a service is down. Press Ctrl+C to stop.")
	fmt.Println()

	<-ctx.Done()
}
