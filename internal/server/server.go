package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/pulsedeck/internal/registry"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "PulseDeck"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Source is the endpoint state the server exposes. [registry.Registry]
// implements it.
type Source interface {
	All() []registry.Endpoint
	Remove(key string) bool
	Subscribe() <-chan registry.Endpoint
	Unsubscribe(ch <-chan registry.Endpoint)
}

// Server is the local status API.
//
// Routes:
//   - GET /: embedded status page (when assets are provided)
//   - GET /api/endpoints: all records as JSON
//   - DELETE /api/endpoints/{key}: removes a record
//   - GET /api/sse: Server-Sent Events stream of record changes
//   - GET /metrics: Prometheus exposition (when a handler is provided)
//
// The server shuts down gracefully when the context passed to
// [Server.Start] is cancelled.
type Server struct {
	source     Source
	port       int
	assets     fs.FS
	title      string
	metrics    http.Handler
	logger     *slog.Logger
	httpServer *http.Server
	addr       net.Addr
}

// NewServer creates a new HTTP [Server]. assets and metrics may be nil.
// The server is not started until [Server.Start] is called.
func NewServer(src Source, port int, assets fs.FS, title string, metrics http.Handler, logger *slog.Logger) *Server {
	return &Server{
		source:  src,
		port:    port,
		assets:  assets,
		title:   title,
		metrics: metrics,
		logger:  logger,
	}
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/endpoints", s.handleEndpoints)
	mux.HandleFunc("DELETE /api/endpoints/{key}", s.handleRemove)
	mux.HandleFunc("GET /api/sse", s.handleSSE)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	if s.assets != nil {
		mux.HandleFunc("GET /{$}", s.handleDashboard)
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. Returns an
// error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// bind first to report port conflicts synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// request contexts derive from ctx so SSE handlers exit on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("status server listening", "addr", s.addr.String())
	return nil
}

// Addr returns the bound address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	return s.addr
}

// handleDashboard serves the status page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleEndpoints returns all records as JSON.
func (s *Server) handleEndpoints(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(s.source.All()); err != nil {
		s.logger.Error("failed to encode endpoints response", "error", err)
	}
}

// handleRemove deletes one record.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !s.source.Remove(key) {
		http.Error(w, fmt.Sprintf("endpoint %q not found", key), http.StatusNotFound)
		return
	}
	s.logger.Info("endpoint removed via status api", "key", key)
	w.WriteHeader(http.StatusNoContent)
}

// handleSSE streams record changes via Server-Sent Events.
//
// Writes carry a deadline so a stalled client cannot pin the handler past
// shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// not every ResponseWriter supports deadlines
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.source.Subscribe()
	defer s.source.Unsubscribe(ch)

	// current state first, then changes
	for _, ep := range s.source.All() {
		data, err := json.Marshal(ep)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case ep, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ep)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown
			return
		}
	}
}
