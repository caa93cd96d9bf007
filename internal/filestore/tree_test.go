package filestore

import (
	"os"
	"path/filepath"
	"testing"
)

func buildSampleTree(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	paths := []string{
		"2026/01/01/00/cam-000100.jpg",
		"2026/01/01/00/cam-000200.jpg",
		"2026/01/01/01/cam-010000.jpg",
		"2026/01/02/00/cam-000000.jpg",
	}
	for _, p := range paths {
		full := filepath.Join(base, p)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// a dotfile must be ignored
	if err := os.WriteFile(filepath.Join(base, "2026/01/01/00", ".hidden"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return base
}

func TestTreeFirstLastOrder(t *testing.T) {
	tr := NewTree(buildSampleTree(t), nil)
	first, ok := tr.First()
	if !ok {
		t.Fatal("First: not ok")
	}
	if filepath.Base(first) != "cam-000100.jpg" {
		t.Errorf("First = %q", first)
	}
	last, ok := tr.Last()
	if !ok {
		t.Fatal("Last: not ok")
	}
	if filepath.Base(last) != "cam-000000.jpg" {
		t.Errorf("Last = %q", last)
	}
}

func TestTreeNextVisitsInTimestampOrder(t *testing.T) {
	tr := NewTree(buildSampleTree(t), nil)
	var order []string
	for {
		p, ok := tr.Next(false)
		if !ok {
			break
		}
		order = append(order, filepath.Base(p))
	}
	want := []string{"cam-000100.jpg", "cam-000200.jpg", "cam-010000.jpg", "cam-000000.jpg"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestTreeReverseNextWalksBackwards(t *testing.T) {
	tr := NewTree(buildSampleTree(t), nil)
	tr.Last()
	p, ok := tr.Next(true)
	if !ok {
		t.Fatal("reverse Next: not ok")
	}
	if filepath.Base(p) != "cam-010000.jpg" {
		t.Errorf("reverse Next = %q", p)
	}
}

func TestTreeHiddenFilesIgnored(t *testing.T) {
	tr := NewTree(buildSampleTree(t), nil)
	count := 0
	for {
		_, ok := tr.Next(false)
		if !ok {
			break
		}
		count++
	}
	if count != 4 {
		t.Fatalf("count = %d, want 4 (hidden file must be excluded)", count)
	}
}

func TestTreeRepositionRoundTrip(t *testing.T) {
	tr := NewTree(buildSampleTree(t), nil)
	p, ok := tr.Next(false)
	if !ok {
		t.Fatal("Next: not ok")
	}
	_, _ = tr.Next(false) // move away from p

	res := tr.Reposition(p)
	if !res.OK {
		t.Fatalf("Reposition = %+v, want OK", res)
	}
	cur, ok := tr.Current()
	if !ok || cur != p {
		t.Fatalf("Current() = %q, %v, want %q, true", cur, ok, p)
	}
}

func TestTreeRepositionOutOfTree(t *testing.T) {
	tr := NewTree(buildSampleTree(t), nil)
	res := tr.Reposition("/not/under/root/file.jpg")
	if !res.OutOfTree {
		t.Fatalf("Reposition = %+v, want OutOfTree", res)
	}
}

func TestTreeMovedIsOneShot(t *testing.T) {
	tr := NewTree(buildSampleTree(t), nil)
	tr.First()
	if !tr.Moved() {
		t.Fatal("Moved() should be true right after a seek")
	}
	if tr.Moved() {
		t.Fatal("Moved() should be false on the second call")
	}
}

func TestTreeRerootRequiresSibling(t *testing.T) {
	base := buildSampleTree(t)
	tr := NewTree(filepath.Join(base, "2026"), nil)
	if err := tr.Reroot(filepath.Join(filepath.Dir(base), "other")); err == nil {
		t.Fatal("Reroot to a non-sibling should fail")
	}
	sibling := filepath.Join(filepath.Dir(filepath.Join(base, "2026")), "2026-other")
	if err := tr.Reroot(sibling); err != nil {
		t.Fatalf("Reroot to sibling: %v", err)
	}
}

func TestTreeRequiredPrefixFilter(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"cam-000100.jpg", "other-000200.jpg"} {
		if err := os.WriteFile(filepath.Join(base, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	tr := NewTree(base, DefaultIgnore("cam-"))
	count := 0
	for {
		_, ok := tr.Next(false)
		if !ok {
			break
		}
		count++
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 with required prefix filter", count)
	}
}
