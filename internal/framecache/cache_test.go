package framecache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreWritesScratchFile(t *testing.T) {
	base := t.TempDir()
	c := New(base, 4)

	eventual := filepath.Join(base, "2026", "01", "01", "00", "frame-000001.jpg")
	if err := c.Store([]byte("jpeg-bytes"), "jpeg", eventual, ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}

	entries, err := os.ReadDir(filepath.Join(base, scratchDirName))
	if err != nil {
		t.Fatalf("ReadDir scratch: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("scratch dir has %d entries, want 1", len(entries))
	}
}

func TestRingDropsOldestScratchFile(t *testing.T) {
	base := t.TempDir()
	c := New(base, 2)

	for i := 0; i < 3; i++ {
		eventual := filepath.Join(base, "out", "f.jpg")
		if err := c.Store([]byte{byte(i)}, "jpeg", eventual, ""); err != nil {
			t.Fatalf("Store #%d: %v", i, err)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	entries, err := os.ReadDir(filepath.Join(base, scratchDirName))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("scratch dir has %d files after drop, want 2", len(entries))
	}
}

func TestCommitRenamesInOrder(t *testing.T) {
	base := t.TempDir()
	c := New(base, 3)

	var eventuals []string
	for i := 0; i < 3; i++ {
		eventual := filepath.Join(base, "out", filefmt(i))
		eventuals = append(eventuals, eventual)
		if err := c.Store([]byte{byte(i)}, "jpeg", eventual, ""); err != nil {
			t.Fatalf("Store #%d: %v", i, err)
		}
	}

	if err := c.Commit(false); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len after commit = %d, want 0", c.Len())
	}
	for i, p := range eventuals {
		b, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile %s: %v", p, err)
		}
		if len(b) != 1 || b[0] != byte(i) {
			t.Errorf("file %d contents = %v, want [%d]", i, b, i)
		}
	}

	entries, _ := os.ReadDir(filepath.Join(base, scratchDirName))
	if len(entries) != 0 {
		t.Errorf("scratch dir not drained after commit: %d left", len(entries))
	}
}

func TestCommitKeepSlowRetainsRing(t *testing.T) {
	base := t.TempDir()
	c := New(base, 2)
	if err := c.Store([]byte("a"), "jpeg", filepath.Join(base, "out", "a.jpg"), ""); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if err := c.Commit(true); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Len after keepSlow commit = %d, want 1", c.Len())
	}
}

func TestStoreWithSameAsPathDoesNotWriteScratch(t *testing.T) {
	base := t.TempDir()
	c := New(base, 2)

	alreadyStored := filepath.Join(base, "out", "existing.jpg")
	if err := os.MkdirAll(filepath.Dir(alreadyStored), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(alreadyStored, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.Store(nil, "jpeg", alreadyStored, alreadyStored); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, scratchDirName)); !os.IsNotExist(err) {
		t.Fatalf("scratch dir created for a linked entry")
	}

	if err := c.Commit(false); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := os.Stat(alreadyStored); err != nil {
		t.Fatalf("linked file disappeared after commit: %v", err)
	}
}

func TestCapacityZeroDisablesCaching(t *testing.T) {
	base := t.TempDir()
	c := New(base, 0)
	if err := c.Store([]byte("x"), "jpeg", filepath.Join(base, "out", "f.jpg"), ""); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
	if _, err := os.Stat(filepath.Join(base, scratchDirName)); !os.IsNotExist(err) {
		t.Fatalf("scratch dir created despite zero capacity")
	}
}

func TestSweepRemovesOrphanedScratchFiles(t *testing.T) {
	base := t.TempDir()
	scratchDir := filepath.Join(base, scratchDirName)
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(scratchDir, "00000000001.jpg"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := Sweep(base)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("Sweep removed %d files, want 1", n)
	}
	entries, _ := os.ReadDir(scratchDir)
	if len(entries) != 0 {
		t.Errorf("%d files remain after sweep", len(entries))
	}
}

func TestSweepOnMissingDirIsNotAnError(t *testing.T) {
	base := t.TempDir()
	n, err := Sweep(base)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
}

func filefmt(i int) string {
	return "frame-" + string(rune('a'+i)) + ".jpg"
}
