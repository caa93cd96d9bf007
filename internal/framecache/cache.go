// If you are AI: This file implements the pre-roll ring cache a recorder drains on a fast trigger.

// Package framecache keeps the last K frames written to scratch files so a
// recorder can commit a short pre-roll once motion (or another trigger)
// asks it to start recording "fast".
package framecache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const scratchDirName = ".cache"

// entry is one ring slot: either a scratch file written by Store, or a
// reference into a file that is already in the main store (sameAsPath).
type entry struct {
	scratchPath  string
	eventualPath string
	linked       bool // true if scratchPath already lives in the main store
}

// Cache is a bounded ring of recent frames awaiting Commit. It is single-
// owner: callers must not share a Cache across goroutines without external
// locking beyond what Store/Commit already provide.
type Cache struct {
	mu       sync.Mutex
	base     string
	capacity int
	ring     []entry
	count    int
	next     int // index where the next Store writes
	seq      uint64
}

// New creates a cache rooted at base with room for capacity entries.
// capacity == 0 disables caching: Store records nothing and writes no
// scratch file, and Commit is a no-op.
func New(base string, capacity int) *Cache {
	return &Cache{
		base:     base,
		capacity: capacity,
		ring:     make([]entry, capacity),
	}
}

// scratchDir computes dir.
func (c *Cache) scratchDir() string { return filepath.Join(c.base, scratchDirName) }

// Store adds a frame to the ring. If sameAsPath is non-empty, the frame is
// already present at that path in the main store (because the caller is
// already persisting every frame) and the cache merely records a
// reference to it rather than writing a scratch copy. Otherwise payload is
// written to a fresh scratch file under <base>/.cache/.
func (c *Cache) Store(payload []byte, typ string, eventualPath string, sameAsPath string) error {
	if c.capacity == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var e entry
	if sameAsPath != "" {
		e = entry{scratchPath: sameAsPath, eventualPath: eventualPath, linked: true}
	} else {
		if err := os.MkdirAll(c.scratchDir(), 0755); err != nil {
			return fmt.Errorf("framecache: create scratch dir: %w", err)
		}
		c.seq++
		scratch := filepath.Join(c.scratchDir(), fmt.Sprintf("%020d%s", c.seq, filepath.Ext(eventualPath)))
		if err := os.WriteFile(scratch, payload, 0644); err != nil {
			return fmt.Errorf("framecache: write scratch file: %w", err)
		}
		e = entry{scratchPath: scratch, eventualPath: eventualPath}
	}

	if c.count == c.capacity {
		// Ring is full: the slot we're about to overwrite holds the oldest
		// entry, since next always points one past the most recent write
		// in a full ring.
		oldest := c.ring[c.next]
		c.dropLocked(oldest)
	} else {
		c.count++
	}
	c.ring[c.next] = e
	c.next = (c.next + 1) % c.capacity
	return nil
}

// dropLocked drops locked.
func (c *Cache) dropLocked(e entry) {
	if e.scratchPath == "" || e.linked {
		return
	}
	os.Remove(e.scratchPath)
}

// Commit renames every ring entry's scratch file into its eventual path in
// the main store, in ring order (oldest first). A failed rename is
// skipped — logged by the caller via the returned error — and the rest of
// the ring is still committed. Linked entries (sameAsPath) need no
// rename: the file is already where it belongs.
//
// After Commit the ring is empty, unless keepSlow is true, in which case
// entries remain for further demotion (e.g. a later, cooler commit).
func (c *Cache) Commit(keepSlow bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 {
		return nil
	}

	start := (c.next - c.count + c.capacity) % c.capacity
	var firstErr error
	for i := 0; i < c.count; i++ {
		idx := (start + i) % c.capacity
		e := c.ring[idx]
		if e.scratchPath == "" || e.linked {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(e.eventualPath), 0755); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("framecache: mkdir for %s: %w", e.eventualPath, err)
			}
			continue
		}
		if err := os.Rename(e.scratchPath, e.eventualPath); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("framecache: rename %s to %s: %w", e.scratchPath, e.eventualPath, err)
			}
			continue
		}
	}

	if !keepSlow {
		c.ring = make([]entry, c.capacity)
		c.count = 0
		c.next = 0
	}
	return firstErr
}

// Len reports how many entries currently sit in the ring.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Sweep removes orphaned scratch files left under <base>/.cache/ by a
// process that crashed before committing or discarding them. It should be
// called once at startup, before any Cache for the same base is used.
func Sweep(base string) (int, error) {
	dir := filepath.Join(base, scratchDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, de.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
