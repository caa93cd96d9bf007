// If you are AI: This file reassembles RFC 6184 H.264/RTP packets into Annex-B access units.

package rtpdepacket

import (
	"bytes"
	"fmt"
)

// NAL unit type numbers we need to recognise per RFC 6184.
const (
	nalTypeMask = 0x1F
	nalSTAPA    = 24
	nalFUA      = 28
	nalSliceIDR = 5
	fuStartMask = 0x80
	fuEndMask   = 0x40
	fuTypeMask  = 0x1F
)

var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// h264State tracks in-progress NAL/FU-A reassembly for one SSRC.
type h264State struct {
	frame       bytes.Buffer // Annex-B bytes accumulated for the frame in progress
	fuBuf       bytes.Buffer // payload bytes accumulated for an in-progress FU-A
	fuActive    bool
	sawKeyUnit  bool // the frame in progress contains (or followed) an IDR slice
	hadKeyFrame bool // at least one key frame has been seen since the last reset
	frameCount  int
}

// reset resets its state.
func (s *h264State) reset() {
	s.frame.Reset()
	s.fuBuf.Reset()
	s.fuActive = false
	s.sawKeyUnit = false
	s.hadKeyFrame = false
	s.frameCount = 0
}

// handle feeds one RTP payload (already stripped of the RTP header)
// into the per-SSRC H.264 state. When payload's marker bit ends an access
// unit, the reassembled Annex-B buffer is returned; output gating (waiting
// for the first key frame, per §4.7) is applied before returning true.
func (s *h264State) handle(payload []byte, marker bool, keyFrameSanityLimit int) ([]byte, bool, error) {
	if len(payload) == 0 {
		return nil, false, fmt.Errorf("rtpdepacket: empty h264 payload")
	}
	nalType := payload[0] & nalTypeMask
	switch {
	case nalType >= 1 && nalType <= 23:
		s.appendNAL(payload)
		if nalType == nalSliceIDR {
			s.sawKeyUnit = true
		}
	case nalType == nalSTAPA:
		if err := s.handleSTAPA(payload); err != nil {
			return nil, false, err
		}
	case nalType == nalFUA:
		if err := s.handleFUA(payload); err != nil {
			return nil, false, err
		}
	default:
		return nil, false, fmt.Errorf("rtpdepacket: unsupported h264 nal type %d", nalType)
	}

	if !marker {
		return nil, false, nil
	}

	out := append([]byte(nil), s.frame.Bytes()...)
	s.frameCount++
	if s.sawKeyUnit {
		s.hadKeyFrame = true
	}
	waiting := !s.hadKeyFrame && s.frameCount < keyFrameSanityLimit
	s.frame.Reset()
	s.fuBuf.Reset()
	s.fuActive = false
	s.sawKeyUnit = false

	if waiting {
		// Suppress undecodable leading P-frames until the first key frame
		// arrives, per §4.7's output gating, up to the sanity limit.
		return nil, false, nil
	}
	return out, true, nil
}

// appendNAL appends nal.
func (s *h264State) appendNAL(nal []byte) {
	s.frame.Write(annexBStartCode)
	s.frame.Write(nal)
}

// handleSTAPA unpacks a single-time aggregation packet: a sequence of
// 2-byte-length-prefixed NAL units sharing one timestamp.
func (s *h264State) handleSTAPA(payload []byte) error {
	buf := payload[1:]
	for len(buf) > 2 {
		size := int(buf[0])<<8 | int(buf[1])
		buf = buf[2:]
		if size <= 0 || size > len(buf) {
			return fmt.Errorf("rtpdepacket: malformed stap-a aggregation unit")
		}
		nal := buf[:size]
		s.appendNAL(nal)
		if nal[0]&nalTypeMask == nalSliceIDR {
			s.sawKeyUnit = true
		}
		buf = buf[size:]
	}
	return nil
}

// handleFUA accumulates fragmentation-unit payload bytes across packets,
// emitting a reconstructed NAL unit into the frame buffer on the
// end-of-fragment packet.
func (s *h264State) handleFUA(payload []byte) error {
	if len(payload) < 2 {
		return fmt.Errorf("rtpdepacket: short fu-a payload")
	}
	fuHeader := payload[1]
	start := fuHeader&fuStartMask != 0
	end := fuHeader&fuEndMask != 0
	fragType := fuHeader & fuTypeMask

	if start {
		s.fuBuf.Reset()
		s.fuBuf.WriteByte(payload[0]&0xE0 | fragType)
		s.fuActive = true
	}
	if !s.fuActive {
		return fmt.Errorf("rtpdepacket: fu-a continuation without a start fragment")
	}
	s.fuBuf.Write(payload[2:])

	if end {
		nal := append([]byte(nil), s.fuBuf.Bytes()...)
		s.appendNAL(nal)
		if fragType == nalSliceIDR {
			s.sawKeyUnit = true
		}
		s.fuBuf.Reset()
		s.fuActive = false
	}
	return nil
}
