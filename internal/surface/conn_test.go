package surface

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHost is a websocket server standing in for the control-surface host.
type fakeHost struct {
	server   *httptest.Server
	conns    chan *websocket.Conn
	received chan map[string]any
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	h := &fakeHost{
		conns:    make(chan *websocket.Conn, 1),
		received: make(chan map[string]any, 32),
	}
	upgrader := websocket.Upgrader{}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.conns <- ws
		for {
			var m map[string]any
			if err := ws.ReadJSON(&m); err != nil {
				return
			}
			h.received <- m
		}
	}))
	t.Cleanup(h.server.Close)
	return h
}

func (h *fakeHost) params(t *testing.T) Params {
	t.Helper()
	host, port, err := net.SplitHostPort(h.server.Listener.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return Params{Port: p, PluginUUID: "plugin-uuid", RegisterEvent: "registerPlugin", Host: host}
}

func (h *fakeHost) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-h.conns:
		return ws
	case <-time.After(2 * time.Second):
		t.Fatal("plugin did not connect")
		return nil
	}
}

func (h *fakeHost) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case m := <-h.received:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for plugin message")
		return nil
	}
}

// recordingHandler captures dispatched events.
type recordingHandler struct {
	mu     sync.Mutex
	events []string
	seen   chan struct{}
	last   Settings
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(chan struct{}, 32)}
}

func (r *recordingHandler) add(name string, s Settings) {
	r.mu.Lock()
	r.events = append(r.events, name)
	r.last = s
	r.mu.Unlock()
	r.seen <- struct{}{}
}

func (r *recordingHandler) Appear(_ context.Context, key string, s Settings) {
	r.add("appear:"+key, s)
}

func (r *recordingHandler) Disappear(_ context.Context, key string) {
	r.add("disappear:"+key, Settings{})
}

func (r *recordingHandler) SettingsChanged(_ context.Context, key string, s Settings) {
	r.add("settings:"+key, s)
}

func (r *recordingHandler) Activate(_ context.Context, key string) {
	r.add("activate:"+key, Settings{})
}

func (r *recordingHandler) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for event %d", i+1)
		}
	}
}

func TestDial_Registers(t *testing.T) {
	host := newFakeHost(t)

	c, err := Dial(context.Background(), host.params(t), testLogger())
	require.NoError(t, err)
	defer c.Close()

	host.conn(t)
	reg := host.next(t)
	assert.Equal(t, "registerPlugin", reg["event"])
	assert.Equal(t, "plugin-uuid", reg["uuid"])
}

func TestDial_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		errMsg string
	}{
		{"no port", Params{PluginUUID: "u", RegisterEvent: "r"}, "port"},
		{"no uuid", Params{Port: 1234, RegisterEvent: "r"}, "UUID"},
		{"no event", Params{Port: 1234, PluginUUID: "u"}, "register event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Dial(context.Background(), tt.params, testLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDial_Unreachable(t *testing.T) {
	host := newFakeHost(t)
	p := host.params(t)
	host.server.Close()

	_, err := Dial(context.Background(), p, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestServe_DispatchesLifecycleEvents(t *testing.T) {
	host := newFakeHost(t)
	c, err := Dial(context.Background(), host.params(t), testLogger())
	require.NoError(t, err)
	ws := host.conn(t)
	host.next(t) // registration

	h := newRecordingHandler()
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- c.Serve(ctx, h) }()

	frames := []string{
		`{"event":"willAppear","context":"k1","payload":{"settings":{"endpoint":"http://x","healthyStatusCode":"204","checkSeconds":10}}}`,
		`{"event":"deviceDidConnect","device":"d1"}`,
		`not json`,
		`{"event":"didReceiveSettings","context":"k1","payload":{"settings":{"endpoint":"http://y"}}}`,
		`{"event":"keyDown","context":"k1"}`,
		`{"event":"willDisappear","context":"k1"}`,
	}
	for _, f := range frames {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(f)))
	}

	h.wait(t, 4)
	h.mu.Lock()
	assert.Equal(t, []string{"appear:k1", "settings:k1", "activate:k1", "disappear:k1"}, h.events)
	h.mu.Unlock()

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestServe_HostCloseReturnsNil(t *testing.T) {
	host := newFakeHost(t)
	c, err := Dial(context.Background(), host.params(t), testLogger())
	require.NoError(t, err)
	defer c.Close()
	ws := host.conn(t)
	host.next(t)

	served := make(chan error, 1)
	go func() { served <- c.Serve(context.Background(), newRecordingHandler()) }()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after host close")
	}
}

func TestActions_SentToHost(t *testing.T) {
	host := newFakeHost(t)
	c, err := Dial(context.Background(), host.params(t), testLogger())
	require.NoError(t, err)
	defer c.Close()
	host.conn(t)
	host.next(t)

	c.ShowAlert("k1")
	c.ShowOK("k2")
	c.OpenURL("http://x/health")

	alert := host.next(t)
	assert.Equal(t, EventShowAlert, alert["event"])
	assert.Equal(t, "k1", alert["context"])

	ok := host.next(t)
	assert.Equal(t, EventShowOK, ok["event"])
	assert.Equal(t, "k2", ok["context"])

	open := host.next(t)
	assert.Equal(t, EventOpenURL, open["event"])
	payload, isMap := open["payload"].(map[string]any)
	require.True(t, isMap, "payload should be an object")
	assert.Equal(t, "http://x/health", payload["url"])
}

func TestActions_AfterCloseAreDropped(t *testing.T) {
	host := newFakeHost(t)
	c, err := Dial(context.Background(), host.params(t), testLogger())
	require.NoError(t, err)
	host.conn(t)
	host.next(t)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close(), "second Close should be a no-op")

	// must not panic or block
	c.ShowAlert("k1")
	c.ShowOK("k1")
	c.OpenURL("http://x")
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"willAppear","action":"com.example.pulsedeck.monitor","context":"abc","payload":{"settings":{"endpoint":"http://x","healthyStatusCode":201,"checkSeconds":"15"}}}`))
	require.NoError(t, err)

	assert.Equal(t, EventWillAppear, ev.Event)
	assert.Equal(t, "abc", ev.Context)
	assert.Equal(t, "http://x", ev.Payload.Settings.Endpoint)
	assert.Equal(t, 201, ev.Payload.Settings.HealthyStatusCode.Int())
	assert.Equal(t, 15, ev.Payload.Settings.CheckSeconds.Int())

	_, err = DecodeEvent([]byte(`{"context":"abc"}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{`))
	assert.Error(t, err)
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`200`, 200},
		{`"200"`, 200},
		{`" 30 "`, 30},
		{`""`, 0},
		{`null`, 0},
		{`"abc"`, 0},
		{`12.0`, 12},
		{`true`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f FlexInt
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			assert.Equal(t, tt.want, f.Int())
		})
	}
}

func TestParams_URL(t *testing.T) {
	assert.Equal(t, "ws://127.0.0.1:28196", Params{Port: 28196}.URL())
	assert.Equal(t, "ws://localhost:1", Params{Port: 1, Host: "localhost"}.URL())
}
