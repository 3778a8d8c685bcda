package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 5 * time.Second
	outboundBuffer = 64
	defaultHost    = "127.0.0.1"
)

// ErrClosed is returned by [Conn.Serve] when the connection was closed
// locally.
var ErrClosed = errors.New("surface: connection closed")

// Params are the launch parameters the host passes to the plugin.
type Params struct {
	// Port is the host's local websocket port.
	Port int

	// PluginUUID identifies this plugin instance to the host.
	PluginUUID string

	// RegisterEvent is the event name used to register, usually "registerPlugin".
	RegisterEvent string

	// Host overrides the loopback address. Mostly useful in tests.
	Host string
}

// URL returns the websocket URL for p.
func (p Params) URL() string {
	host := p.Host
	if host == "" {
		host = defaultHost
	}
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, strconv.Itoa(p.Port))}
	return u.String()
}

// Validate reports missing launch parameters.
func (p Params) Validate() error {
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", p.Port)
	}
	if p.PluginUUID == "" {
		return errors.New("plugin UUID is required")
	}
	if p.RegisterEvent == "" {
		return errors.New("register event is required")
	}
	return nil
}

// Handler receives host lifecycle events. Events are delivered one at a time
// in the order the host sent them.
type Handler interface {
	Appear(ctx context.Context, key string, settings Settings)
	Disappear(ctx context.Context, key string)
	SettingsChanged(ctx context.Context, key string, settings Settings)
	Activate(ctx context.Context, key string)
}

// Conn is a registered connection to the host.
//
// The action methods ([Conn.ShowAlert], [Conn.ShowOK], [Conn.OpenURL]) are
// safe for concurrent use and never block; when the outbound queue is full
// the action is dropped and logged.
type Conn struct {
	ws     *websocket.Conn
	out    chan message
	logger *slog.Logger

	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

// Dial connects to the host and registers the plugin.
func Dial(ctx context.Context, p Params, logger *slog.Logger) (*Conn, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, p.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to host at %s: %w", p.URL(), err)
	}

	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteJSON(message{Event: p.RegisterEvent, UUID: p.PluginUUID}); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("failed to register with host: %w", err)
	}

	logger.Info("registered with host", "url", p.URL(), "register_event", p.RegisterEvent)
	return newConn(ws, logger), nil
}

func newConn(ws *websocket.Conn, logger *slog.Logger) *Conn {
	c := &Conn{
		ws:         ws,
		out:        make(chan message, outboundBuffer),
		logger:     logger,
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Serve reads events and dispatches them to h until ctx is cancelled, the
// host closes the connection, or a read fails. It returns nil on context
// cancellation and on a normal close from the host.
func (c *Conn) Serve(ctx context.Context, h Handler) error {
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("host closed connection")
				return nil
			}
			if c.closed() {
				return ErrClosed
			}
			return fmt.Errorf("failed to read from host: %w", err)
		}

		ev, err := DecodeEvent(data)
		if err != nil {
			c.logger.Warn("ignoring malformed event", "error", err)
			continue
		}
		c.dispatch(ctx, h, ev)
	}
}

func (c *Conn) dispatch(ctx context.Context, h Handler, ev Event) {
	switch ev.Event {
	case EventWillAppear:
		h.Appear(ctx, ev.Context, ev.Payload.Settings)
	case EventWillDisappear:
		h.Disappear(ctx, ev.Context)
	case EventDidReceiveSettings:
		h.SettingsChanged(ctx, ev.Context, ev.Payload.Settings)
	case EventKeyDown:
		h.Activate(ctx, ev.Context)
	default:
		c.logger.Debug("ignoring event", "event", ev.Event, "context", ev.Context)
	}
}

// ShowAlert requests the momentary alert visual on the button key.
func (c *Conn) ShowAlert(key string) {
	c.enqueue(message{Event: EventShowAlert, Context: key})
}

// ShowOK requests the momentary "OK" visual on the button key.
func (c *Conn) ShowOK(key string) {
	c.enqueue(message{Event: EventShowOK, Context: key})
}

// OpenURL asks the host to open rawURL in the default browser.
func (c *Conn) OpenURL(rawURL string) {
	c.enqueue(message{Event: EventOpenURL, Payload: &messagePayload{URL: rawURL}})
}

func (c *Conn) enqueue(m message) {
	if c.closed() {
		return
	}
	select {
	case c.out <- m:
	default:
		c.logger.Warn("outbound queue full, dropping action", "event", m.Event, "context", m.Context)
	}
}

func (c *Conn) writeLoop() {
	defer close(c.writerDone)

	for {
		select {
		case <-c.done:
			return
		case m := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(m); err != nil {
				c.logger.Error("failed to send action", "event", m.Event, "error", err)
			}
		}
	}
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close stops the writer and closes the connection. Queued actions that were
// not yet written are discarded. Safe to call multiple times.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.writerDone

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}
