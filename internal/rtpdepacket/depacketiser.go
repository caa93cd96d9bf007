// If you are AI: This file reassembles RTP packets into complete frames across multiple payload formats.

// Package rtpdepacket reassembles RTP packets carrying JPEG (RFC 2435) or
// H.264 (RFC 6184) video into complete frames. A frame is handed to the
// caller as an imageconv.Image: fully decoded JFIF bytes for JPEG, or an
// opaque Annex-B byte stream for H.264 — decoding H.264 to raw pixels is
// an external collaborator's job (§1's image-codec boundary), not this
// package's.
package rtpdepacket

import (
	"fmt"
	"time"

	"github.com/pion/rtp"

	"github.com/graeme-walker/videotools/internal/imageconv"
)

const (
	payloadTypeJPEG = 26

	// DefaultSourceStaleTimeout matches the original rtpserver's
	// hard-coded 10 second staleness window.
	DefaultSourceStaleTimeout = 10 * time.Second

	// DefaultKeyFrameSanityLimit matches the original rtpserver's 100
	// frame "give up waiting for a key frame" threshold.
	DefaultKeyFrameSanityLimit = 100
)

// Config tunes one Depacketiser.
type Config struct {
	// PacketType restricts processing to one RTP payload type number; 0
	// accepts both JPEG (26) and any payload type in the dynamic range
	// 96-127, treating the latter as H.264.
	PacketType int

	// SourceStaleTimeout is how long a Depacketiser keeps waiting on
	// packets from the active SSRC before accepting a new one.
	SourceStaleTimeout time.Duration

	// KeyFrameSanityLimit bounds how many leading H.264 frames are
	// suppressed while waiting for the first key frame.
	KeyFrameSanityLimit int

	// JPEGFudgeFactor selects one of three legacy quantisation-table
	// scaling variants (0, 1 or 2) for senders that don't embed their
	// own tables; see buildQuantTables.
	JPEGFudgeFactor int
}

// withDefaults computes defaults.
func (c Config) withDefaults() Config {
	if c.SourceStaleTimeout <= 0 {
		c.SourceStaleTimeout = DefaultSourceStaleTimeout
	}
	if c.KeyFrameSanityLimit <= 0 {
		c.KeyFrameSanityLimit = DefaultKeyFrameSanityLimit
	}
	return c
}

// sourceState is the reassembly state for one active SSRC.
type sourceState struct {
	ssrc       uint32
	lastSeen   time.Time
	highWater  uint16
	haveSeq    bool
	payloadTyp byte
	h264       h264State
	jpeg       jpegState
}

// Depacketiser reassembles RTP/JPEG and RTP/H.264 streams into complete
// frames. It tracks at most one active source at a time, per §4.7; a
// second SSRC only takes over once the first goes stale.
type Depacketiser struct {
	cfg    Config
	active *sourceState
}

// New creates a Depacketiser with cfg's limits applied (zero values take
// the package defaults).
func New(cfg Config) *Depacketiser {
	return &Depacketiser{cfg: cfg.withDefaults()}
}

// HandlePacket parses one UDP datagram as an RTP packet and feeds it into
// the reassembly state machine. It returns a complete image and true when
// the packet completes a frame. A malformed packet or an unsupported
// payload type returns an error. A sequence-number gap discards the
// reassembly in progress and returns no error. Packets outside the
// PacketType filter, from a non-active live SSRC, or from before the
// sequence high-water mark are ignored without an error.
func (d *Depacketiser) HandlePacket(data []byte, now time.Time) (imageconv.Image, bool, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return imageconv.Image{}, false, fmt.Errorf("rtpdepacket: malformed rtp packet: %w", err)
	}

	if d.cfg.PacketType != 0 && int(pkt.PayloadType) != d.cfg.PacketType {
		return imageconv.Image{}, false, nil
	}
	isJPEG := pkt.PayloadType == payloadTypeJPEG
	isH264 := pkt.PayloadType >= 96 && pkt.PayloadType <= 127
	if !isJPEG && !isH264 {
		return imageconv.Image{}, false, fmt.Errorf("rtpdepacket: unsupported payload type %d", pkt.PayloadType)
	}

	src := d.sourceFor(pkt.SSRC, byte(pkt.PayloadType), now)
	if src == nil {
		// A different SSRC while the active source is still live: ignore,
		// per §4.7's source staleness rule.
		return imageconv.Image{}, false, nil
	}

	if src.haveSeq && seqBefore(pkt.SequenceNumber, src.highWater) {
		// Packet from before our high-water mark: a reordered retransmit
		// of something already dropped. Ignore rather than reset state.
		return imageconv.Image{}, false, nil
	}
	if src.haveSeq && pkt.SequenceNumber != src.highWater+1 {
		// A gap invalidates the reassembly in progress; for H.264 the
		// next key frame will resynchronise state, per §4.7's loss
		// policy.
		src.h264.reset()
		src.jpeg.reset()
	}
	src.highWater = pkt.SequenceNumber
	src.haveSeq = true

	if isJPEG {
		out, ok, err := src.jpeg.handle(pkt.Payload, pkt.Marker, d.cfg.JPEGFudgeFactor)
		if err != nil || !ok {
			return imageconv.Image{}, false, err
		}
		return imageconv.Image{Type: imageconv.JPEG, Bytes: out}, true, nil
	}

	out, ok, err := src.h264.handle(pkt.Payload, pkt.Marker, d.cfg.KeyFrameSanityLimit)
	if err != nil || !ok {
		return imageconv.Image{}, false, err
	}
	return imageconv.Image{Type: imageconv.Any, Bytes: out}, true, nil
}

// sourceFor returns the active source for ssrc, replacing it with a fresh
// one if ssrc has changed or the previous source has gone stale. A
// different SSRC does not preempt a still-live source; it is simply
// ignored until the live one goes stale, per §4.7's source staleness
// rule.
func (d *Depacketiser) sourceFor(ssrc uint32, payloadTyp byte, now time.Time) *sourceState {
	if d.active != nil && d.active.ssrc == ssrc {
		d.active.lastSeen = now
		return d.active
	}
	if d.active != nil && now.Sub(d.active.lastSeen) < d.cfg.SourceStaleTimeout {
		return nil
	}
	d.active = &sourceState{ssrc: ssrc, lastSeen: now, payloadTyp: payloadTyp}
	return d.active
}

// Stale reports whether the current active source has exceeded its
// staleness timeout as of now, letting a caller decide to log a source
// change.
func (d *Depacketiser) Stale(now time.Time) bool {
	return d.active != nil && now.Sub(d.active.lastSeen) >= d.cfg.SourceStaleTimeout
}

// seqBefore reports whether a comes strictly before b in RTP sequence
// space, accounting for 16-bit wraparound.
func seqBefore(a, b uint16) bool {
	return int16(a-b) < 0
}
