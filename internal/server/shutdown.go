// If you are AI: This file handles graceful shutdown orchestration shared by every videotools process.

// Package server provides the SIGINT/SIGTERM shutdown sequence shared by
// every videotools long-running process (recorder, watcher, httpserver,
// rtpserver). It no longer owns process wiring itself — the RTMP/HTTP-FLV
// server that used to live here has been superseded by internal/httpserver
// and the five cmd/* main packages, which construct and run their own
// listeners directly.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Shutdownable is anything with a graceful-shutdown method, satisfied by
// *http.Server, *httpserver.Server, *commandbus.Endpoint and similar.
type Shutdownable interface {
	Shutdown(ctx context.Context) error
}

// ShutdownHandler manages graceful shutdown on SIGINT or SIGTERM for one
// or more Shutdownable components, shut down in the order given.
type ShutdownHandler struct {
	targets []Shutdownable
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// NewShutdownHandler creates a handler that listens for termination
// signals and shuts targets down when one arrives. The provided context
// is used as the parent for the handler's own cancellation context.
func NewShutdownHandler(ctx context.Context, timeout time.Duration, targets ...Shutdownable) *ShutdownHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ShutdownHandler{
		targets: targets,
		ctx:     shutdownCtx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// Wait blocks until a termination signal is received, then shuts every
// target down in order, returning the first error encountered. This
// method should be called from the main goroutine.
func (h *ShutdownHandler) Wait() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	h.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var firstErr error
	for _, t := range h.targets {
		if err := t.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Context returns the shutdown context that is cancelled when shutdown
// begins.
func (h *ShutdownHandler) Context() context.Context {
	return h.ctx
}
