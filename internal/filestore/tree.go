// If you are AI: This file implements ordered traversal over an existing tree of persisted frames.

package filestore

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// IgnorePredicate reports whether a file's base name should be excluded
// from traversal — hidden files, or (when a required prefix is in play)
// files belonging to a different stream sharing the same store.
type IgnorePredicate func(name string) bool

// DefaultIgnore skips dotfiles and anything not starting with
// requiredPrefix (empty means no filter). Dot-directories, such as the
// cache scratch directory, are skipped by the tree walk itself whatever
// the predicate.
func DefaultIgnore(requiredPrefix string) IgnorePredicate {
	return func(name string) bool {
		if strings.HasPrefix(name, ".") {
			return true
		}
		if requiredPrefix != "" && !strings.HasPrefix(name, requiredPrefix) {
			return true
		}
		return false
	}
}

// RepositionResult reports the outcome of Tree.Reposition.
type RepositionResult struct {
	OK        bool
	OutOfTree bool
	OffTheEnd bool
}

// Tree provides ordered traversal of a FileStore for a player: the
// directory layout's lexical order (YYYY/MM/DD/HH/prefix-HHMMSS[.fff].ext)
// coincides with timestamp order, so a full sorted listing is also a
// timestamp-ordered one. Populating the list walks every directory under
// root, which is why an ignore predicate matters for large multi-stream
// stores (§4.4: "admits multi-stream stores at the cost of slow
// startup").
type Tree struct {
	mu        sync.Mutex
	root      string
	ignore    IgnorePredicate
	files     []string
	populated bool
	pos       int // -1 before the first entry
	movedFlag bool
}

// NewTree creates a traversal cursor rooted at root. ignore may be nil,
// in which case DefaultIgnore("") is used.
func NewTree(root string, ignore IgnorePredicate) *Tree {
	if ignore == nil {
		ignore = DefaultIgnore("")
	}
	return &Tree{root: root, ignore: ignore, pos: -1}
}

// Root returns the tree's current root directory.
func (t *Tree) Root() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// ensurePopulatedLocked lazily scans the tree's directory the first time it's needed.
func (t *Tree) ensurePopulatedLocked() error {
	if t.populated {
		return nil
	}
	var files []string
	err := filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == t.root {
				return err
			}
			return nil // skip unreadable subtrees rather than aborting the whole walk
		}
		if d.IsDir() {
			if path != t.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if t.ignore(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("filestore: walk %s: %w", t.root, err)
	}
	sort.Strings(files)
	t.files = files
	t.populated = true
	return nil
}

// markMoved marks moved.
func (t *Tree) markMoved() { t.movedFlag = true }

// Moved reports whether a seek (Reposition, First, Last) happened since
// the last call to Moved, then clears the flag — it is true for exactly
// one cycle, matching the player's "blank the display while hunting"
// use.
func (t *Tree) Moved() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.movedFlag
	t.movedFlag = false
	return v
}

// First repositions the cursor at the earliest file in the tree.
func (t *Tree) First() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensurePopulatedLocked(); err != nil || len(t.files) == 0 {
		return "", false
	}
	t.pos = 0
	t.markMoved()
	return t.files[t.pos], true
}

// Last repositions the cursor at the most recent file in the tree.
func (t *Tree) Last() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensurePopulatedLocked(); err != nil || len(t.files) == 0 {
		return "", false
	}
	t.pos = len(t.files) - 1
	t.markMoved()
	return t.files[t.pos], true
}

// Next advances the cursor one file forwards in timestamp order, or
// backwards when reverse is true. The second return is false once the
// far end of the tree has been passed.
func (t *Tree) Next(reverse bool) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensurePopulatedLocked(); err != nil {
		return "", false
	}
	return t.stepLocked(!reverse)
}

// Previous moves the cursor one file backwards in timestamp order, or
// forwards when reverse is true — the mirror image of Next.
func (t *Tree) Previous(reverse bool) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensurePopulatedLocked(); err != nil {
		return "", false
	}
	return t.stepLocked(reverse)
}

// stepLocked moves the cursor by one in the given direction (true =
// forwards) and returns the file landed on.
func (t *Tree) stepLocked(forwards bool) (string, bool) {
	if len(t.files) == 0 {
		return "", false
	}
	if forwards {
		if t.pos+1 >= len(t.files) {
			t.pos = len(t.files)
			return "", false
		}
		t.pos++
	} else {
		if t.pos-1 < 0 {
			t.pos = -1
			return "", false
		}
		t.pos--
	}
	return t.files[t.pos], true
}

// Reposition seeks the cursor to path, or to its closest existing
// neighbour in timestamp order if path itself is not present, reporting
// which case applied.
func (t *Tree) Reposition(path string) RepositionResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensurePopulatedLocked(); err != nil {
		return RepositionResult{OutOfTree: true}
	}
	if !strings.HasPrefix(path, strings.TrimSuffix(t.root, "/")+"/") {
		return RepositionResult{OutOfTree: true}
	}
	if len(t.files) == 0 {
		return RepositionResult{OffTheEnd: true}
	}

	idx := sort.SearchStrings(t.files, path)
	if idx >= len(t.files) {
		t.pos = len(t.files) - 1
		t.markMoved()
		return RepositionResult{OffTheEnd: true}
	}
	t.pos = idx
	t.markMoved()
	return RepositionResult{OK: true}
}

// Current returns the file the cursor currently points at, if any.
func (t *Tree) Current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pos < 0 || t.pos >= len(t.files) {
		return "", false
	}
	return t.files[t.pos], true
}

// Reroot points the tree at a new root directory, which must be a
// sibling of the current one (§4.4) — this is how a multi-camera
// install switches the fileplayer between cameras sharing a parent
// directory without allowing an arbitrary, potentially unrelated path.
func (t *Tree) Reroot(newRoot string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if filepath.Dir(newRoot) != filepath.Dir(t.root) {
		return fmt.Errorf("filestore: reroot target %s is not a sibling of %s", newRoot, t.root)
	}
	t.root = newRoot
	t.files = nil
	t.populated = false
	t.pos = -1
	return nil
}
