// If you are AI: This file reassembles RFC 2435 JPEG/RTP packets into JFIF images.

package rtpdepacket

import (
	"bytes"
	"fmt"
)

// RFC 2435 reassembles JPEG/RTP payloads from a main JPEG header plus raw
// entropy-coded scan data; it never carries Huffman tables or, when the
// sender uses one of the well-known quantisation tables, quantisation
// tables either. Reconstructing a standalone JFIF file requires
// synthesising both, which is what this file does.

// jpegState tracks in-progress RFC 2435 reassembly for one SSRC.
type jpegState struct {
	scan          bytes.Buffer
	haveFirst     bool
	typ           byte
	q             byte
	width, height int // in pixels
}

// reset resets its state.
func (s *jpegState) reset() {
	s.scan.Reset()
	s.haveFirst = false
}

// rfc2435Header is the fixed 8-byte JPEG payload header defined in RFC
// 2435 §3.1, plus an optional restart-marker header and an optional
// quantisation-table header that only appears on the first packet of a
// frame (fragment offset 0).
type rfc2435Header struct {
	fragmentOffset uint32
	typ            byte
	q              byte
	width          int // pixels
	height         int // pixels
	qTable         []byte // present only when fragmentOffset==0 && q>=128
}

// parseRFC2435Header parses an RFC 2435 JPEG/RTP payload header.
func parseRFC2435Header(payload []byte) (rfc2435Header, []byte, error) {
	if len(payload) < 8 {
		return rfc2435Header{}, nil, fmt.Errorf("rtpdepacket: short jpeg header")
	}
	h := rfc2435Header{
		fragmentOffset: uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3]),
		typ:            payload[4],
		q:              payload[5],
		width:          int(payload[6]) * 8,
		height:         int(payload[7]) * 8,
	}
	rest := payload[8:]

	if h.typ&0x40 != 0 {
		// Restart marker header: 4 bytes, not needed to synthesise a
		// non-restart-interval JFIF file but must still be skipped.
		if len(rest) < 4 {
			return rfc2435Header{}, nil, fmt.Errorf("rtpdepacket: short jpeg restart header")
		}
		rest = rest[4:]
	}

	if h.fragmentOffset == 0 && h.q >= 128 {
		if len(rest) < 4 {
			return rfc2435Header{}, nil, fmt.Errorf("rtpdepacket: short jpeg quant header")
		}
		length := int(rest[2])<<8 | int(rest[3])
		rest = rest[4:]
		if len(rest) < length {
			return rfc2435Header{}, nil, fmt.Errorf("rtpdepacket: truncated jpeg quant table")
		}
		h.qTable = rest[:length]
		rest = rest[length:]
	}
	return h, rest, nil
}

// handle feeds one RTP/JPEG payload into the per-SSRC state. It returns a
// complete, standalone JFIF byte stream when the packet's marker bit ends
// the frame.
func (s *jpegState) handle(payload []byte, marker bool, fudgeFactor int) ([]byte, bool, error) {
	h, scanData, err := parseRFC2435Header(payload)
	if err != nil {
		return nil, false, err
	}

	if h.fragmentOffset == 0 {
		s.scan.Reset()
		s.haveFirst = true
		s.typ = h.typ
		s.q = h.q
		s.width = h.width
		s.height = h.height
	} else if !s.haveFirst {
		// Mid-frame join: no fragment-offset-0 packet seen yet, nothing
		// to anchor dimensions or quantisation tables to.
		return nil, false, fmt.Errorf("rtpdepacket: jpeg fragment without a leading packet")
	}
	s.scan.Write(scanData)

	if !marker {
		return nil, false, nil
	}

	qTables := h.qTable
	if qTables == nil {
		qTables = buildQuantTables(s.q, fudgeFactor)
	} else if len(qTables) >= 128 {
		qTables = qTables[:128]
	}

	out, err := buildJFIF(s.width, s.height, s.typ, qTables, s.scan.Bytes())
	s.scan.Reset()
	s.haveFirst = false
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// buildJFIF assembles a minimal baseline JFIF file around raw entropy-
// coded scan data: SOI, JFIF APP0, two DQT segments, SOF0, the four
// standard Annex K Huffman tables, SOS, the scan bytes themselves, then
// EOI.
func buildJFIF(width, height int, typ byte, qTables []byte, scan []byte) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("rtpdepacket: jpeg frame with zero dimensions")
	}
	if len(qTables) < 128 {
		return nil, fmt.Errorf("rtpdepacket: need 128 bytes of quantisation tables, got %d", len(qTables))
	}
	lumaQ := qTables[:64]
	chromaQ := qTables[64:128]

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8}) // SOI

	writeAPP0(&buf)
	writeDQT(&buf, 0, lumaQ)
	writeDQT(&buf, 1, chromaQ)
	writeSOF0(&buf, width, height, typ)
	for _, t := range standardHuffmanTables {
		writeDHT(&buf, t)
	}
	writeSOS(&buf)

	buf.Write(scan)
	buf.Write([]byte{0xFF, 0xD9}) // EOI
	return buf.Bytes(), nil
}

// defaultLumaQuant and defaultChromaQuant are RFC 2435 §4.2's base
// quantisation tables at quality 50, the ones Q/2 through Q/99 scale
// relative to.
var (
	defaultLumaQuant = []byte{
		16, 11, 10, 16, 24, 40, 51, 61,
		12, 12, 14, 19, 26, 58, 60, 55,
		14, 13, 16, 24, 40, 57, 69, 56,
		14, 17, 22, 29, 51, 87, 80, 62,
		18, 22, 37, 56, 68, 109, 103, 77,
		24, 35, 55, 64, 81, 104, 113, 92,
		49, 64, 78, 87, 103, 121, 120, 101,
		72, 92, 95, 98, 112, 100, 103, 99,
	}
	defaultChromaQuant = []byte{
		17, 18, 24, 47, 99, 99, 99, 99,
		18, 21, 26, 66, 99, 99, 99, 99,
		24, 26, 56, 99, 99, 99, 99, 99,
		47, 66, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
		99, 99, 99, 99, 99, 99, 99, 99,
	}
)

// buildQuantTables derives the pair of 64-byte quantisation tables RFC
// 2435 §4.2 describes for a given Q factor when the sender didn't supply
// an explicit table. Q is clamped to 1-100: below 50 the base tables
// are scaled by 5000/Q percent, from 50 up by 200-2Q percent, so every
// Q from 100 to 127 yields tables of 1s. fudgeFactor selects one of the
// three legacy variants the open question in the toolkit's design notes
// calls out: 0 and 1 both use that scaling unchanged, and 2 also caps Q
// at 99. The break point stays at 50 for all three;
// callers should not try to derive a fourth value from first principles.
func buildQuantTables(q byte, fudgeFactor int) []byte {
	scale := scaleFactorForQ(q, fudgeFactor)
	out := make([]byte, 128)
	scaleQuantTable(out[:64], defaultLumaQuant, scale)
	scaleQuantTable(out[64:], defaultChromaQuant, scale)
	return out
}

// scaleFactorForQ rescales factor for q.
func scaleFactorForQ(q byte, fudgeFactor int) int {
	qi := int(q)
	if qi > 100 {
		qi = 100
	}
	switch fudgeFactor {
	case 1:
		if qi < 1 {
			qi = 1
		}
	case 2:
		if qi > 99 {
			qi = 99
		}
	}
	if qi < 1 {
		qi = 1
	}
	if qi < 50 {
		return 5000 / qi
	}
	return 200 - qi*2
}

// scaleQuantTable rescales quant table.
func scaleQuantTable(dst, base []byte, scale int) {
	for i, v := range base {
		scaled := (int(v)*scale + 50) / 100
		if scaled < 1 {
			scaled = 1
		}
		if scaled > 255 {
			scaled = 255
		}
		dst[i] = byte(scaled)
	}
}
