package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/pulsedeck/config"
	"github.com/jpalmerr/pulsedeck/internal/surface"
)

func fastConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
poll_interval: 1s
alert_interval: 250ms
check_timeout: 500ms
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg
}

// TestServePlugin_EndToEnd drives the plugin through a fake host: a button
// appears on an unhealthy endpoint, is pressed, and the host then closes the
// connection.
func TestServePlugin_EndToEnd(t *testing.T) {
	health := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer health.Close()

	type frame map[string]any
	registered := make(chan frame, 1)
	received := make(chan frame, 64)

	upgrader := websocket.Upgrader{}
	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		var reg frame
		if err := ws.ReadJSON(&reg); err != nil {
			return
		}
		registered <- reg

		appear := fmt.Sprintf(`{"event":"willAppear","context":"btn","payload":{"settings":{"endpoint":%q,"healthyStatusCode":"200"}}}`, health.URL)
		_ = ws.WriteMessage(websocket.TextMessage, []byte(appear))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"keyDown","context":"btn"}`))

		sawAlert, sawOpen := false, false
		deadline := time.Now().Add(5 * time.Second)
		for !(sawAlert && sawOpen) && time.Now().Before(deadline) {
			_ = ws.SetReadDeadline(deadline)
			var m frame
			if err := ws.ReadJSON(&m); err != nil {
				return
			}
			received <- m
			switch m["event"] {
			case surface.EventShowAlert:
				sawAlert = true
			case surface.EventOpenURL:
				sawOpen = true
			}
		}

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}))
	defer host.Close()

	hostAddr, portStr, _ := net.SplitHostPort(host.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	params := surface.Params{Port: port, PluginUUID: "uuid-1", RegisterEvent: "registerPlugin", Host: hostAddr}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- servePlugin(ctx, params, fastConfig(t), testLogger()) }()

	select {
	case reg := <-registered:
		if reg["event"] != "registerPlugin" || reg["uuid"] != "uuid-1" {
			t.Errorf("registration = %v", reg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("plugin did not register")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("servePlugin() error = %v", err)
		}
	case <-time.After(8 * time.Second):
		t.Fatal("servePlugin did not return after host closed")
	}

	close(received)
	var alerts, opens int
	for m := range received {
		switch m["event"] {
		case surface.EventShowAlert:
			alerts++
			if m["context"] != "btn" {
				t.Errorf("alert context = %v, want btn", m["context"])
			}
		case surface.EventOpenURL:
			opens++
			payload, _ := m["payload"].(map[string]any)
			if payload["url"] != health.URL {
				t.Errorf("open url = %v, want %s", payload["url"], health.URL)
			}
		case surface.EventShowOK:
			t.Error("unexpected showOk for an endpoint that never recovered")
		}
	}
	if alerts == 0 {
		t.Error("no showAlert sent for unhealthy endpoint")
	}
	if opens != 1 {
		t.Errorf("openUrl sent %d times, want 1", opens)
	}
}

func TestServePlugin_HostUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	params := surface.Params{Port: port, PluginUUID: "u", RegisterEvent: "registerPlugin"}
	err = servePlugin(context.Background(), params, fastConfig(t), testLogger())
	if err == nil {
		t.Fatal("servePlugin() expected error for unreachable host")
	}
}
