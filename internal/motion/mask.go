// If you are AI: This file loads and reloads a PBM mask excluding regions from motion detection.

package motion

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// Mask is a binary per-pixel matrix loaded from a PBM file: true marks a
// masked-out pixel (excluded from motion analysis), matching §3's "binary
// per-pixel matrix". It is rescaled on load to the analysis image's
// current dimensions.
type Mask struct {
	dx, dy int
	bits   []bool
	mtime  time.Time
}

// LoadMask reads a PBM (P1 ASCII or P4 binary) file and rescales it
// (nearest-neighbour) to dx x dy. The returned mtime lets a caller detect
// when the file needs reloading, per §3's "lazily reloaded when its mtime
// changes".
func LoadMask(path string, dx, dy int) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("motion: open mask %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("motion: stat mask %s: %w", path, err)
	}

	srcDX, srcDY, bits, err := decodePBM(f)
	if err != nil {
		return nil, fmt.Errorf("motion: decode mask %s: %w", path, err)
	}

	scaled := rescaleBits(bits, srcDX, srcDY, dx, dy)
	return &Mask{dx: dx, dy: dy, bits: scaled, mtime: info.ModTime()}, nil
}

// ModTime is the backing file's modification time at load.
func (m *Mask) ModTime() time.Time { return m.mtime }

// Masked reports whether (x, y) is excluded from motion analysis. A nil
// Mask masks nothing.
func (m *Mask) Masked(x, y int) bool {
	if m == nil {
		return false
	}
	return m.bits[y*m.dx+x]
}

// decodePBM parses pbm.
func decodePBM(f *os.File) (dx, dy int, bits []bool, err error) {
	r := bufio.NewReader(f)
	magic, err := readPBMToken(r)
	if err != nil {
		return 0, 0, nil, err
	}
	width, err := readPBMInt(r)
	if err != nil {
		return 0, 0, nil, err
	}
	height, err := readPBMInt(r)
	if err != nil {
		return 0, 0, nil, err
	}
	bits = make([]bool, width*height)

	switch magic {
	case "P1":
		for i := range bits {
			tok, err := readPBMToken(r)
			if err != nil {
				return 0, 0, nil, err
			}
			bits[i] = tok == "1"
		}
	case "P4":
		rowBytes := (width + 7) / 8
		row := make([]byte, rowBytes)
		for y := 0; y < height; y++ {
			if _, err := readPBMFull(r, row); err != nil {
				return 0, 0, nil, err
			}
			for x := 0; x < width; x++ {
				b := row[x/8]
				bits[y*width+x] = (b>>(7-uint(x%8)))&1 == 1
			}
		}
	default:
		return 0, 0, nil, fmt.Errorf("unrecognised PBM magic %q", magic)
	}
	return width, height, bits, nil
}

// rescaleBits rescales bits.
func rescaleBits(src []bool, srcDX, srcDY, dstDX, dstDY int) []bool {
	if srcDX == dstDX && srcDY == dstDY {
		return src
	}
	out := make([]bool, dstDX*dstDY)
	for y := 0; y < dstDY; y++ {
		sy := y * srcDY / dstDY
		for x := 0; x < dstDX; x++ {
			sx := x * srcDX / dstDX
			out[y*dstDX+x] = src[sy*srcDX+sx]
		}
	}
	return out
}
