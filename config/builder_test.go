package config

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/jpalmerr/pulsedeck"
)

func TestBuildButtons(t *testing.T) {
	cfg := &Config{
		Endpoints: []EndpointConfig{
			{Key: "web", URL: "https://web.example.com/"},
			{Key: "api", URL: "https://api.example.com/health", HealthyStatusCode: 204, CheckSeconds: 15},
		},
	}

	got := BuildButtons(cfg)
	want := []Button{
		{
			Key: "api",
			Settings: pulsedeck.Settings{
				URL:               "https://api.example.com/health",
				HealthyStatusCode: 204,
				CheckInterval:     15 * time.Second,
			},
		},
		{
			Key:      "web",
			Settings: pulsedeck.Settings{URL: "https://web.example.com/"},
		},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildButtons() = %+v, want %+v", got, want)
	}
}

func TestBuildButtons_Empty(t *testing.T) {
	if got := BuildButtons(Default()); len(got) != 0 {
		t.Errorf("BuildButtons() = %+v, want empty", got)
	}
}

// fakeHost satisfies pulsedeck.Host for constructing plugins from options.
type fakeHost struct{}

func (fakeHost) ShowAlert(string) {}
func (fakeHost) ShowOK(string)    {}
func (fakeHost) OpenURL(string)   {}

func TestBuildOptions_ProducesValidPlugin(t *testing.T) {
	cfg, err := Parse([]byte(`
poll_interval: 5s
alert_interval: 1s
check_timeout: 2s
max_concurrency: 4
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := pulsedeck.New(fakeHost{}, BuildOptions(cfg, logger)...)
	if err != nil {
		t.Fatalf("pulsedeck.New() error = %v", err)
	}
	defer p.Stop()

	if p.MetricsHandler() != nil {
		t.Error("metrics should be disabled without a status port")
	}
}

func TestBuildOptions_StatusPortEnablesMetrics(t *testing.T) {
	cfg, err := Parse([]byte(`status_port: 9090`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	p, err := pulsedeck.New(fakeHost{}, BuildOptions(cfg, nil)...)
	if err != nil {
		t.Fatalf("pulsedeck.New() error = %v", err)
	}
	defer p.Stop()

	if p.MetricsHandler() == nil {
		t.Error("metrics should be enabled with a status port")
	}
}
