package main

import (
	"bytes"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/pulsedeck"
	"github.com/jpalmerr/pulsedeck/config"
	"github.com/jpalmerr/pulsedeck/internal/surface"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "host launch flags",
			in:   []string{"-port", "28196", "-pluginUUID", "abc", "-registerEvent", "registerPlugin", "-info", `{"a":1}`},
			want: []string{"--port", "28196", "--pluginUUID", "abc", "--registerEvent", "registerPlugin", "--info", `{"a":1}`},
		},
		{
			name: "equals form",
			in:   []string{"-port=28196"},
			want: []string{"--port=28196"},
		},
		{
			name: "already double dash",
			in:   []string{"--port", "1"},
			want: []string{"--port", "1"},
		},
		{
			name: "short and unknown flags untouched",
			in:   []string{"-c", "config.yaml", "-v", "validate"},
			want: []string{"-c", "config.yaml", "-v", "validate"},
		},
		{
			name: "empty",
			in:   []string{},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeArgs(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeArgs(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRootCmd_MissingLaunchParams(t *testing.T) {
	_, err := executeCmd(t, "-port", "0")
	if err == nil {
		t.Fatal("root command expected error without launch parameters")
	}
	if !strings.Contains(err.Error(), "pulsedeck watch") {
		t.Errorf("error = %v, want a hint about watch mode", err)
	}
}

func TestToSettings(t *testing.T) {
	tests := []struct {
		name string
		in   surface.Settings
		want pulsedeck.Settings
	}{
		{
			name: "all fields",
			in:   surface.Settings{Endpoint: "http://x", HealthyStatusCode: 204, CheckSeconds: 15},
			want: pulsedeck.Settings{URL: "http://x", HealthyStatusCode: 204, CheckInterval: 15 * time.Second},
		},
		{
			name: "zero values use defaults",
			in:   surface.Settings{Endpoint: "http://x"},
			want: pulsedeck.Settings{URL: "http://x"},
		},
		{
			name: "negative values use defaults",
			in:   surface.Settings{Endpoint: "http://x", HealthyStatusCode: -1, CheckSeconds: -10},
			want: pulsedeck.Settings{URL: "http://x"},
		},
		{
			name: "unconfigured",
			in:   surface.Settings{},
			want: pulsedeck.Settings{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toSettings(tt.in); got != tt.want {
				t.Errorf("toSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record logged at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON record, got %q", out)
	}

	buf.Reset()
	logger = newLogger(config.LogConfig{Level: "debug", Format: "text"}, &buf)
	logger.Debug("detail")
	if !strings.Contains(buf.String(), "msg=detail") {
		t.Errorf("expected text record, got %q", buf.String())
	}
}

func TestLogHostInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logHostInfo(logger, `{"application":{"version":"6.4.0","platform":"mac","language":"en"},"devices":[{},{}]}`)
	out := buf.String()
	for _, want := range []string{"host_version=6.4.0", "platform=mac", "devices=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}

	buf.Reset()
	logHostInfo(logger, `{not json`)
	if !strings.Contains(buf.String(), "malformed host info") {
		t.Errorf("expected warning for malformed info, got %q", buf.String())
	}

	buf.Reset()
	logHostInfo(logger, "")
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty info, got %q", buf.String())
	}
}
