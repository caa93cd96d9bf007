// If you are AI: This is the CLI entrypoint for the HTTP channel-viewing server.

// Command httpserver exposes publication channels over HTTP: a default
// channel at "/", any channel by name or index at "/_<ref>", a JSON
// channel listing at "/__", a WebSocket viewer-event relay at
// "/ws/events", and static files under --dir. See internal/httpserver
// for the route semantics.
//
// usage: httpserver [<options>] --addr <listen-addr>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/graeme-walker/videotools/internal/config"
	"github.com/graeme-walker/videotools/internal/httpserver"
	"github.com/graeme-walker/videotools/internal/server"
)

const shutdownTimeout = 5 * time.Second

// main wires internal/httpserver.Server from flags and an optional YAML
// config, then blocks until a termination signal triggers a graceful
// shutdown.
func main() {
	configPath := flag.String("config", "", "optional YAML file with shared tuning defaults")
	addr := flag.String("addr", ":8082", "HTTP listen address")
	staticDir := flag.String("dir", "", "root directory for static file serving, empty disables it")
	defaultChannel := flag.String("default-channel", "", "channel served at \"/\"")
	gatewayAddr := flag.String("gateway", "", "host to forward send= queries and viewer events to, empty disables both")
	jpegQuality := flag.Int("jpeg-quality", -1, "JPEG re-encode quality 1..100 (default from config, else 80)")
	flag.Parse()

	if flag.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "usage: httpserver [<options>]")
		os.Exit(2)
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.LoadHTTPServer(*configPath)
	if err != nil {
		logger.Fatalf("httpserver: %v", err)
	}
	applyHTTPServerFlags(cfg, *staticDir, *defaultChannel, *gatewayAddr, *jpegQuality)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("httpserver: invalid configuration: %v", err)
	}

	srv := httpserver.New(httpserver.Config{
		Addr:               *addr,
		StaticDir:          cfg.StaticDir,
		DefaultChannel:     cfg.DefaultChannel,
		GatewayAddr:        cfg.GatewayAddr,
		IdleTimeout:        time.Duration(cfg.IdleTimeoutS) * time.Second,
		InitialDataTimeout: time.Duration(cfg.InitialDataTimeoutS) * time.Second,
		RepeatTimeout:      time.Duration(cfg.RepeatTimeoutMs) * time.Millisecond,
		JPEGQuality:        cfg.JPEGQuality,
	}, logger)

	handler := server.NewShutdownHandler(context.Background(), shutdownTimeout, srv)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("httpserver: %v", err)
		}
	}()

	if err := handler.Wait(); err != nil {
		logger.Printf("httpserver: shutdown: %v", err)
	}
}

// applyHTTPServerFlags overlays explicitly-set CLI flags onto the loaded
// config.
func applyHTTPServerFlags(cfg *config.HTTPServerConfig, staticDir, defaultChannel, gatewayAddr string, jpegQuality int) {
	if staticDir != "" {
		cfg.StaticDir = staticDir
	}
	if defaultChannel != "" {
		cfg.DefaultChannel = defaultChannel
	}
	if gatewayAddr != "" {
		cfg.GatewayAddr = gatewayAddr
	}
	if jpegQuality >= 0 {
		cfg.JPEGQuality = jpegQuality
	}
}
