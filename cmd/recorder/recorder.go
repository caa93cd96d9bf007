// If you are AI: This file implements the recorder's fast/slow/stopped state machine.

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/graeme-walker/videotools/internal/bus"
	"github.com/graeme-walker/videotools/internal/filestore"
	"github.com/graeme-walker/videotools/internal/framecache"
)

// state is the recorder's three recording speeds, per
// original_source/src/main/recorder.cpp.
type state int

const (
	stateStopped state = iota
	stateSlow
	stateFast
)

// String names a state the way the original logs it.
func (s state) String() string {
	switch s {
	case stateFast:
		return "fast"
	case stateSlow:
		return "slow"
	default:
		return "stopped"
	}
}

// Settings holds the recorder's fixed, per-invocation configuration.
type Settings struct {
	BaseDir     string
	Prefix      string
	Scale       int
	FileType    string // "" keeps the channel's published type
	TZOffsetH   int
	CacheSize   int
	FastTimeout time.Duration // 0 disables auto-demotion out of fast
}

// Recorder subscribes to a channel and writes frames to a FileStore
// according to its current fast/slow/stopped state, with a FrameCache
// providing pre-roll lead-in when a "fast" command arrives.
type Recorder struct {
	mu    sync.Mutex
	set   Settings
	cache *framecache.Cache

	state     state
	oldState  state // state to restore when a timed fast demotion fires
	fastTimer *time.Timer

	logger *log.Logger
}

// NewRecorder creates a Recorder starting in base (stateSlow or
// stateStopped); startFast additionally pushes it straight into
// stateFast, matching the original's "--fast" switch applied after
// "--state".
func NewRecorder(set Settings, base state, startFast bool, logger *log.Logger) *Recorder {
	r := &Recorder{
		set:    set,
		cache:  framecache.New(set.BaseDir, set.CacheSize),
		state:  base,
		logger: logger,
	}
	if startFast {
		r.setState(stateFast)
	}
	return r
}

// HandleFrame persists one frame according to the current state and
// feeds the pre-roll cache, mirroring Recorder::onImageInput +
// Recorder::cacheStore.
func (r *Recorder) HandleFrame(frame bus.Frame) {
	r.mu.Lock()
	st := r.state
	r.mu.Unlock()

	typ := frame.Type
	if r.set.FileType != "" {
		typ = r.set.FileType
	}
	now := filestore.EpochTime{Sec: frame.Time.Sec, Usec: frame.Time.Usec}

	var writtenPath string
	if st != stateStopped {
		path := filestore.Path(r.set.BaseDir, r.set.Prefix, now, typ, st == stateFast, r.set.TZOffsetH*3600)
		if err := writeFrame(path, frame.Payload); err != nil {
			r.logger.Printf("recorder: write %s: %v", path, err)
		} else {
			writtenPath = path
		}
	}

	if st == stateStopped || st == stateSlow {
		fastPath := filestore.Path(r.set.BaseDir, r.set.Prefix, now, typ, true, r.set.TZOffsetH*3600)
		if err := r.cache.Store(frame.Payload, typ, fastPath, writtenPath); err != nil {
			r.logger.Printf("recorder: cache store: %v", err)
		}
	}
}

// writeFrame creates path's parent directory and writes payload to it.
func writeFrame(path string, payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(path, payload, 0644)
}

// SetFast switches to the fast state, commits the pre-roll cache as the
// lead-in to whatever triggered it, and arms the auto-demotion timer.
func (r *Recorder) SetFast() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setState(stateFast)
	if err := r.cache.Commit(false); err != nil {
		r.logger.Printf("recorder: commit cache on fast: %v", err)
	}
	r.armFastTimerLocked()
}

// SetSlow switches to the slow state, committing (and retaining) any
// cached pre-roll frames so a later "fast" can still draw on them.
func (r *Recorder) SetSlow() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setState(stateSlow)
	if err := r.cache.Commit(true); err != nil {
		r.logger.Printf("recorder: commit cache on slow: %v", err)
	}
	r.cancelFastTimerLocked()
}

// SetStopped switches to the stopped state: no writes, cache keeps
// rolling for a future trigger.
func (r *Recorder) SetStopped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setState(stateStopped)
	r.cancelFastTimerLocked()
}

// setState records the transition and, when entering fast, remembers the
// state to restore on auto-demotion.
func (r *Recorder) setState(s state) {
	if s == r.state {
		return
	}
	if s == stateFast {
		r.oldState = r.state
	}
	r.logger.Printf("recorder: recording speed: %s", s)
	r.state = s
}

// armFastTimerLocked schedules a return to the pre-fast state after
// FastTimeout, unless FastTimeout is zero (stay fast indefinitely).
func (r *Recorder) armFastTimerLocked() {
	r.cancelFastTimerLocked()
	if r.set.FastTimeout <= 0 {
		return
	}
	r.fastTimer = time.AfterFunc(r.set.FastTimeout, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.state != stateFast {
			return
		}
		r.setState(r.oldState)
	})
}

// cancelFastTimerLocked stops a pending auto-demotion, if any.
func (r *Recorder) cancelFastTimerLocked() {
	if r.fastTimer != nil {
		r.fastTimer.Stop()
		r.fastTimer = nil
	}
}
