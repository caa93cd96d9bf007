// If you are AI: This file wires HttpServerCore's net/http listener and route table.

// Package httpserver implements HttpServerCore: a plain net/http server
// that exposes PubChannel frames over HTTP, mirroring the teacher's
// internal/server + internal/svc/httpflv + internal/svc/wsflv + internal/svc/health
// quartet but reading from internal/bus instead of an in-process stream
// registry, and serving arbitrary image types instead of FLV tags.
//
// Like internal/commandbus's Endpoint and internal/rtpdepacket's Server,
// this does not plug into internal/reactor: net/http already owns an
// efficient per-connection goroutine model with its own read/write
// deadlines, and fighting that with the process's fd-poll Reactor would
// only add an indirection net/http doesn't need.
package httpserver

import (
	"context"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config holds HttpServerCore's tunables, per spec §4.6.
type Config struct {
	Addr               string        // listen address, e.g. ":8082"
	StaticDir          string        // --dir: root for static file serving
	DefaultChannel     string        // channel served at "/"
	GatewayAddr        string        // --gateway host; empty disables send=
	IdleTimeout        time.Duration // per-connection idle timeout
	InitialDataTimeout time.Duration // time to wait for a channel's first frame
	RepeatTimeout      time.Duration // re-send the last frame after this long with no new one
	JPEGQuality        int
}

// setDefaults sets defaults.
func (c *Config) setDefaults() {
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.InitialDataTimeout == 0 {
		c.InitialDataTimeout = 5 * time.Second
	}
	if c.RepeatTimeout == 0 {
		c.RepeatTimeout = 15 * time.Second
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = 80
	}
}

// Server is the HTTP listener plus its route handlers.
type Server struct {
	cfg    Config
	http   *http.Server
	logger *log.Logger

	upgrader websocket.Upgrader

	skippedFrames atomic.Int64 // backpressure counter, §4.6's "skip counter"
}

// New builds a Server. It does not start listening until ListenAndServe.
func New(cfg Config, logger *log.Logger) *Server {
	cfg.setDefaults()
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ws/events", s.handleWSEvents)
	mux.HandleFunc("/", s.handleRoot)

	s.http = &http.Server{
		Addr:        cfg.Addr,
		Handler:     mux,
		IdleTimeout: cfg.IdleTimeout,
	}
	return s
}

// ListenAndServe blocks serving HTTP until Shutdown is called or a fatal
// listener error occurs.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server, per the teacher's
// internal/server.Server.Shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// SkippedFrames reports the running backpressure-drop counter.
func (s *Server) SkippedFrames() int64 {
	return s.skippedFrames.Load()
}

// handleHealthz computes healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}
