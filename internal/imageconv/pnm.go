// If you are AI: This file implements a PNM (binary PGM/PPM) decoder and encoder.

package imageconv

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
)

// decodePNM decodes the binary grey (P5) and RGB (P6) netpbm formats into
// raw images. No third-party library implements these — they are a
// handful of whitespace-delimited ASCII header fields followed by a
// binary pixel dump, not worth an external dependency for.
func decodePNM(data []byte) (Image, error) {
	r := bufio.NewReader(bytes.NewReader(data))
	magic, err := readPNMToken(r)
	if err != nil {
		return Image{}, fmt.Errorf("imageconv: pnm: %w", err)
	}

	var channels int
	switch magic {
	case "P5":
		channels = 1
	case "P6":
		channels = 3
	default:
		return Image{}, fmt.Errorf("imageconv: pnm: unsupported magic %q", magic)
	}

	width, err := readPNMInt(r)
	if err != nil {
		return Image{}, fmt.Errorf("imageconv: pnm: width: %w", err)
	}
	height, err := readPNMInt(r)
	if err != nil {
		return Image{}, fmt.Errorf("imageconv: pnm: height: %w", err)
	}
	maxval, err := readPNMInt(r)
	if err != nil {
		return Image{}, fmt.Errorf("imageconv: pnm: maxval: %w", err)
	}
	if maxval <= 0 || maxval > 255 {
		return Image{}, fmt.Errorf("imageconv: pnm: unsupported maxval %d", maxval)
	}

	want := width * height * channels
	buf := make([]byte, want)
	if _, err := readFull(r, buf); err != nil {
		return Image{}, fmt.Errorf("imageconv: pnm: pixel data: %w", err)
	}
	return Image{Type: Raw(width, height, channels), Bytes: buf}, nil
}

// EncodePNM encodes a raw grey or RGB image as binary PGM/PPM.
func EncodePNM(img Image) (Image, error) {
	if img.Type.Kind != KindRaw {
		return Image{}, fmt.Errorf("imageconv: EncodePNM requires a raw image, got %s", img.Type)
	}
	var magic string
	switch img.Type.Channels {
	case 1:
		magic = "P5"
	case 3:
		magic = "P6"
	default:
		return Image{}, fmt.Errorf("imageconv: EncodePNM unsupported channel count %d", img.Type.Channels)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n%d %d\n255\n", magic, img.Type.DX, img.Type.DY)
	buf.Write(img.Bytes)
	return Image{Type: PNM, Bytes: buf.Bytes()}, nil
}

// readPNMToken reads the next whitespace-delimited token, skipping
// '#'-prefixed comments, as netpbm headers allow.
func readPNMToken(r *bufio.Reader) (string, error) {
	var tok bytes.Buffer
	for {
		b, err := r.ReadByte()
		if err != nil {
			if tok.Len() > 0 {
				return tok.String(), nil
			}
			return "", err
		}
		if b == '#' {
			for {
				c, err := r.ReadByte()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}
		if isPNMSpace(b) {
			if tok.Len() > 0 {
				return tok.String(), nil
			}
			continue
		}
		tok.WriteByte(b)
	}
}

// readPNMInt reads pnm int.
func readPNMInt(r *bufio.Reader) (int, error) {
	tok, err := readPNMToken(r)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(tok)
}

// isPNMSpace reports whether pnm space.
func isPNMSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// readFull reads full.
func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
