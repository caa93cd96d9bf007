package motion

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMaskFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mask.pbm")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write mask: %v", err)
	}
	return path
}

func TestLoadMaskP1ASCII(t *testing.T) {
	// A 2x2 mask: top-left and bottom-right pixels masked.
	path := writeMaskFile(t, "P1\n2 2\n1 0\n0 1\n")
	m, err := LoadMask(path, 2, 2)
	if err != nil {
		t.Fatalf("LoadMask: %v", err)
	}
	if !m.Masked(0, 0) || m.Masked(1, 0) || m.Masked(0, 1) || !m.Masked(1, 1) {
		t.Errorf("mask bits wrong: (0,0)=%v (1,0)=%v (0,1)=%v (1,1)=%v",
			m.Masked(0, 0), m.Masked(1, 0), m.Masked(0, 1), m.Masked(1, 1))
	}
}

func TestLoadMaskP4Binary(t *testing.T) {
	// 8x1 binary mask, one row byte 0b10000001 => pixel 0 and 7 masked.
	content := "P4\n8 1\n" + string([]byte{0x81})
	path := writeMaskFile(t, content)
	m, err := LoadMask(path, 8, 1)
	if err != nil {
		t.Fatalf("LoadMask: %v", err)
	}
	if !m.Masked(0, 0) || !m.Masked(7, 0) {
		t.Error("expected pixels 0 and 7 masked")
	}
	for x := 1; x < 7; x++ {
		if m.Masked(x, 0) {
			t.Errorf("pixel %d unexpectedly masked", x)
		}
	}
}

func TestLoadMaskRescalesToAnalysisSize(t *testing.T) {
	// 2x2 mask, left column masked; rescaled to 4x4 should keep the left
	// half masked.
	path := writeMaskFile(t, "P1\n2 2\n1 0\n1 0\n")
	m, err := LoadMask(path, 4, 4)
	if err != nil {
		t.Fatalf("LoadMask: %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := x < 2
			if got := m.Masked(x, y); got != want {
				t.Errorf("(%d,%d) masked = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestNilMaskMasksNothing(t *testing.T) {
	var m *Mask
	if m.Masked(5, 5) {
		t.Error("nil mask should mask nothing")
	}
}
