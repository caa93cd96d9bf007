// If you are AI: This file binds a CommandBus datagram socket and serves it until closed.

package commandbus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
)

// Endpoint is a bound datagram socket paired with a Dispatcher. It is not
// wired into the process's Reactor fd sets: net.PacketConn already owns
// efficient non-blocking I/O via the Go runtime's netpoller, and
// duplicating that with our own poll(2) loop would fight it rather than
// cooperate, so Serve runs its own goroutine instead — the same
// trade-off HttpServerCore makes for net/http.
type Endpoint struct {
	conn    net.PacketConn
	network string
	address string
	disp    *Dispatcher
	logger  *log.Logger
	closing chan struct{}
}

// Listen binds a command endpoint. network is "udp" or "unixgram";
// address is "host:port" for udp or a socket path for unixgram. An
// existing unixgram socket file at address is removed first, matching
// the original implementation's bind-time cleanup.
func Listen(network, address string, disp *Dispatcher, logger *log.Logger) (*Endpoint, error) {
	if network == "unixgram" {
		if err := os.Remove(address); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("commandbus: remove stale socket %s: %w", address, err)
		}
	}
	conn, err := net.ListenPacket(network, address)
	if err != nil {
		return nil, fmt.Errorf("commandbus: listen %s %s: %w", network, address, err)
	}
	return &Endpoint{
		conn:    conn,
		network: network,
		address: address,
		disp:    disp,
		logger:  logger,
		closing: make(chan struct{}),
	}, nil
}

// Serve reads datagrams until Close is called, dispatching each parsed
// command. It blocks and is meant to be run in its own goroutine.
func (e *Endpoint) Serve() error {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := e.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-e.closing:
				return nil
			default:
			}
			return fmt.Errorf("commandbus: read: %w", err)
		}
		for _, cmd := range ParseDatagram(buf[:n]) {
			if err := e.disp.Dispatch(cmd); err != nil && e.logger != nil {
				e.logger.Printf("commandbus: %v", err)
			}
		}
	}
}

// Shutdown stops Serve and releases the socket. It satisfies
// server.Shutdownable so an Endpoint can be drained alongside an
// httpserver.Server under one ShutdownHandler; ctx is unused since
// closing a datagram socket is synchronous.
func (e *Endpoint) Shutdown(ctx context.Context) error {
	return e.Close()
}

// Close stops Serve and releases the socket, removing a unixgram
// socket's filesystem entry.
func (e *Endpoint) Close() error {
	close(e.closing)
	err := e.conn.Close()
	if e.network == "unixgram" {
		if rmErr := os.Remove(e.address); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}
	return err
}

// Send fires a one-shot datagram at address, the mechanism MotionCore
// uses to trigger the recorder's "fast" command (§4.5's "Trigger
// fan-out").
func Send(network, address, message string) error {
	conn, err := net.Dial(network, address)
	if err != nil {
		return fmt.Errorf("commandbus: dial %s %s: %w", network, address, err)
	}
	defer conn.Close()
	_, err = conn.Write([]byte(message))
	return err
}
