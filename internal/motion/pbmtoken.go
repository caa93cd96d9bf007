// If you are AI: This file tokenizes a PBM file's ASCII/binary header and bitmap.

package motion

import (
	"bufio"
	"bytes"
	"strconv"
)

// readPBMToken reads the next whitespace-delimited header token, skipping
// '#'-prefixed comments, the same netpbm header grammar imageconv's PNM
// reader uses.
func readPBMToken(r *bufio.Reader) (string, error) {
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
		if isPBMSpace(b) {
			if tok.Len() > 0 {
				return tok.String(), nil
			}
			continue
		}
		tok.WriteByte(b)
	}
}

// readPBMInt reads pbm int.
func readPBMInt(r *bufio.Reader) (int, error) {
	tok, err := readPBMToken(r)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(tok)
}

// isPBMSpace reports whether pbm space.
func isPBMSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// readPBMFull reads pbm full.
func readPBMFull(r *bufio.Reader, buf []byte) (int, error) {
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
