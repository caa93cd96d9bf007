// If you are AI: This file binds a UDP socket and feeds every datagram to a Depacketiser.

package rtpdepacket

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/graeme-walker/videotools/internal/imageconv"
)

// ImageHandler receives each frame a Server reassembles.
type ImageHandler func(img imageconv.Image)

// Server binds a UDP port — optionally joined to a multicast group, per
// the original rtpserver's --multicast option — and feeds every datagram
// to a Depacketiser. Like CommandBus, it runs its own read goroutine over
// net.PacketConn rather than plugging into the process Reactor's poll
// loop: the Go runtime's netpoller already does non-blocking UDP reads
// efficiently, and driving the same fd through our own poll(2) loop would
// just duplicate that work.
type Server struct {
	conn    net.PacketConn
	depack  *Depacketiser
	onImage ImageHandler
	logger  *log.Logger
	closing chan struct{}
}

// Listen binds bindAddr ("ip:port"); if groupAddr is non-empty the socket
// joins that multicast group.
func Listen(bindAddr, groupAddr string, cfg Config, onImage ImageHandler, logger *log.Logger) (*Server, error) {
	var conn net.PacketConn
	if groupAddr != "" {
		udpAddr, err := net.ResolveUDPAddr("udp", bindAddr)
		if err != nil {
			return nil, fmt.Errorf("rtpdepacket: resolve %s: %w", bindAddr, err)
		}
		group, err := net.ResolveUDPAddr("udp", groupAddr+":0")
		if err != nil {
			return nil, fmt.Errorf("rtpdepacket: resolve multicast group %s: %w", groupAddr, err)
		}
		udpAddr.IP = group.IP
		c, err := net.ListenMulticastUDP("udp", nil, udpAddr)
		if err != nil {
			return nil, fmt.Errorf("rtpdepacket: join multicast %s: %w", groupAddr, err)
		}
		conn = c
	} else {
		c, err := net.ListenPacket("udp", bindAddr)
		if err != nil {
			return nil, fmt.Errorf("rtpdepacket: listen %s: %w", bindAddr, err)
		}
		conn = c
	}
	return &Server{
		conn:    conn,
		depack:  New(cfg),
		onImage: onImage,
		logger:  logger,
		closing: make(chan struct{}),
	}, nil
}

// Serve reads datagrams until Close is called, handing each complete
// frame to the onImage callback. It blocks and is meant to be run in its
// own goroutine.
func (s *Server) Serve() error {
	buf := make([]byte, 64*1024)
	for {
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-s.closing:
				return nil
			default:
			}
			return fmt.Errorf("rtpdepacket: read: %w", err)
		}
		img, ok, err := s.depack.HandlePacket(buf[:n], time.Now())
		if err != nil {
			if s.logger != nil {
				s.logger.Printf("rtpdepacket: %v", err)
			}
			continue
		}
		if ok {
			s.onImage(img)
		}
	}
}

// Close stops Serve and releases the socket.
func (s *Server) Close() error {
	close(s.closing)
	return s.conn.Close()
}

// Shutdown stops Serve and releases the socket, satisfying
// server.Shutdownable. ctx is unused: closing a UDP socket is synchronous.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Close()
}
