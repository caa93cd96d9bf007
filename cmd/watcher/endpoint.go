// If you are AI: This file implements the watcher's live-tuning command socket, driven by the process Reactor.

package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/graeme-walker/videotools/internal/commandbus"
	"github.com/graeme-walker/videotools/internal/motion"
	"github.com/graeme-walker/videotools/internal/reactor"
	"golang.org/x/sys/unix"
)

const liveTuningBufSize = 4096

// liveTuningEndpoint reads raw commandbus datagrams and applies each
// parsed command directly to a Comparator, bypassing commandbus.Dispatcher:
// squelch=/threshold=/equalise= commands carry their values inside the verb
// string itself, so there is no fixed verb vocabulary a Dispatcher's
// exact-match table could register ahead of time. It registers its socket
// as a read handler on the process Reactor instead of running its own
// blocking receive loop, per §4.1's "all components plug into one Reactor
// per process".
type liveTuningEndpoint struct {
	file       *os.File
	fd         int
	network    string
	address    string
	comparator *motion.Comparator
	logger     *log.Logger
	reac       *reactor.Reactor
}

// listenLiveTuning binds addr for live squelch/threshold/equalise tuning
// and registers it for readability on reac.
func listenLiveTuning(reac *reactor.Reactor, addr string, comparator *motion.Comparator, logger *log.Logger) (*liveTuningEndpoint, error) {
	network := commandNetwork(addr)
	if network == "unixgram" {
		if err := os.Remove(addr); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale socket %s: %w", addr, err)
		}
	}
	conn, err := net.ListenPacket(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}

	filer, ok := conn.(interface{ File() (*os.File, error) })
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("watcher: %s connection has no dupable fd", network)
	}
	f, err := filer.File()
	conn.Close() // the dup in f keeps the socket alive
	if err != nil {
		return nil, fmt.Errorf("dup %s %s: %w", network, addr, err)
	}
	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		f.Close()
		return nil, fmt.Errorf("set nonblocking %s: %w", addr, err)
	}

	e := &liveTuningEndpoint{
		file:       f,
		fd:         fd,
		network:    network,
		address:    addr,
		comparator: comparator,
		logger:     logger,
		reac:       reac,
	}
	reac.AddRead(fd, reactor.HandlerFunc(e.handleReadable))
	return e, nil
}

// handleReadable drains one ready datagram and applies every command it
// carries to the comparator. It is the Reactor's read handler for this
// endpoint's fd.
func (e *liveTuningEndpoint) handleReadable(fd int) {
	buf := make([]byte, liveTuningBufSize)
	n, _, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		e.logger.Printf("watcher: command socket read: %v", err)
		e.reac.DropRead(fd)
		return
	}
	for _, cmd := range commandbus.ParseDatagram(buf[:n]) {
		e.comparator.ApplyCommand(cmd)
	}
}

// close unregisters the endpoint from its Reactor and releases the
// socket.
func (e *liveTuningEndpoint) close() error {
	e.reac.DropRead(e.fd)
	err := e.file.Close()
	if e.network == "unixgram" {
		if rmErr := os.Remove(e.address); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = rmErr
		}
	}
	return err
}

// commandNetwork infers a command socket's network from its address: a
// colon means host:port UDP, anything else a Unix datagram socket path.
func commandNetwork(addr string) string {
	if strings.Contains(addr, ":") {
		return "udp"
	}
	return "unixgram"
}
