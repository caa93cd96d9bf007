// If you are AI: This file implements frame-to-frame luma differencing and event emission.

// Package motion implements frame-to-frame luma differencing with an
// optional mask and histogram equalisation, emitting a JSON "changes"
// event over a channel's event stream when enough pixels moved.
package motion

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/graeme-walker/videotools/internal/imageconv"
)

// Config holds MotionCore's tunables, per §4.5.
type Config struct {
	IntervalMs      int // minimum gap between comparisons
	Scale           int // integer subsample divisor, 1 = no subsampling
	Squelch         int // 0..255 per-pixel luma-delta threshold
	Threshold       int // pixel-count threshold to emit an event
	LogThreshold    int // 0 disables the lower log-only threshold
	RepeatTimeoutMs int // 0 disables re-emitting the last event as a keepalive
	Equalise        bool
	MaskPath        string
}

// TriggerFunc fires the recorder fast-mode trigger on a motion event
// (§4.5's "Trigger fan-out"); nil disables it.
type TriggerFunc func() error

// Comparator is MotionCore's per-channel analysis state.
type Comparator struct {
	mu sync.Mutex

	cfg      Config
	appName  string
	pid      int
	previous []byte
	dx, dy   int

	mask     *Mask
	maskPath string

	lastCompare time.Time
	repeat      int
	repeatTimer *time.Timer

	logger     *log.Logger
	onEvent    func(Event)
	onTrigger  TriggerFunc
	logThresh  int
}

// New creates a Comparator. onEvent is called with every emitted event
// (the caller publishes it on the channel's event stream); onTrigger, if
// non-nil, is invoked once per fresh "changes" event.
func New(cfg Config, appName string, onEvent func(Event), onTrigger TriggerFunc, logger *log.Logger) *Comparator {
	return &Comparator{
		cfg:       cfg,
		appName:   appName,
		pid:       os.Getpid(),
		maskPath:  cfg.MaskPath,
		logger:    logger,
		onEvent:   onEvent,
		onTrigger: onTrigger,
		logThresh: cfg.LogThreshold,
	}
}

// Process runs one input frame through the pipeline: decode to grey at
// reduced resolution, optional equalisation, diff against the previous
// frame, and event emission. It returns the annotated output image
// (grey with green highlights, dim red over masked pixels) for display
// or re-publication.
func (c *Comparator) Process(img imageconv.Image, now time.Time) (imageconv.Image, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.IntervalMs > 0 && !c.lastCompare.IsZero() && now.Sub(c.lastCompare) < time.Duration(c.cfg.IntervalMs)*time.Millisecond {
		return imageconv.Image{}, false, nil
	}
	c.lastCompare = now
	c.cancelRepeatLocked()

	grey, err := imageconv.ToRaw(img, c.cfg.Scale, true)
	if err != nil {
		return imageconv.Image{}, false, fmt.Errorf("motion: decode: %w", err)
	}
	dx, dy := grey.Type.DX, grey.Type.DY

	if err := c.reloadMaskIfNeeded(dx, dy); err != nil {
		return imageconv.Image{}, false, fmt.Errorf("motion: mask: %w", err)
	}

	pixels := grey.Bytes
	if c.cfg.Equalise {
		pixels = equalise(pixels, dx, dy, c.mask)
	}

	dimensionsChanged := dx != c.dx || dy != c.dy || c.previous == nil
	if dimensionsChanged {
		c.dx, c.dy = dx, dy
		c.previous = append([]byte(nil), pixels...)
		return c.buildOutput(pixels, nil), true, nil
	}

	count := 0
	changed := make([]bool, dx*dy)
	for i := 0; i < dx*dy; i++ {
		x, y := i%dx, i/dx
		if c.mask.Masked(x, y) {
			continue
		}
		diff := int(pixels[i]) - int(c.previous[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > c.cfg.Squelch {
			count++
			changed[i] = true
		}
	}
	c.previous = append(c.previous[:0], pixels...)

	out := c.buildOutput(pixels, changed)

	if count >= c.cfg.Threshold {
		c.repeat = 0
		c.emit(count, now)
	} else if c.logThresh > 0 && count >= c.logThresh && c.logger != nil {
		c.logger.Printf("motion: %d changed pixels (below threshold %d)", count, c.cfg.Threshold)
	}

	return out, true, nil
}

// buildOutput renders the annotated preview image: grey everywhere,
// green over pixels flagged as changed, dim red over masked pixels.
func (c *Comparator) buildOutput(grey []byte, changed []bool) imageconv.Image {
	dx, dy := c.dx, c.dy
	out := make([]byte, dx*dy*3)
	for i := 0; i < dx*dy; i++ {
		x, y := i%dx, i/dx
		g := grey[i]
		switch {
		case c.mask.Masked(x, y):
			out[i*3], out[i*3+1], out[i*3+2] = g/2+40, g/4, g/4
		case changed != nil && changed[i]:
			out[i*3], out[i*3+1], out[i*3+2] = 0, g, 0
		default:
			out[i*3], out[i*3+1], out[i*3+2] = g, g, g
		}
	}
	return imageconv.Image{Type: imageconv.Raw(dx, dy, 3), Bytes: out}
}

// emit publishes a fresh "changes" event, fires the recorder trigger, and
// (re)arms the repeat timer.
func (c *Comparator) emit(count int, now time.Time) {
	c.cancelRepeatLocked()
	ev := c.buildEvent(count, c.repeat, now)
	if c.onEvent != nil {
		c.onEvent(ev)
	}
	if c.onTrigger != nil {
		if err := c.onTrigger(); err != nil && c.logger != nil {
			c.logger.Printf("motion: trigger: %v", err)
		}
	}
	if c.cfg.RepeatTimeoutMs > 0 {
		c.armRepeatLocked(count)
	}
}

// armRepeatLocked schedules a re-emission of the last event with an
// incremented repeat field, per §4.5's repeat timer, until a new frame
// arrives (Process cancels it on the next comparison). The repeat
// period is the independent RepeatTimeoutMs setting, not the
// comparison interval — §4.5's keepalive and IntervalMs's comparison
// gap are separate knobs (watcher.cpp's `--repeat-timeout` vs.
// `--interval`).
func (c *Comparator) armRepeatLocked(count int) {
	interval := time.Duration(c.cfg.RepeatTimeoutMs) * time.Millisecond
	c.repeatTimer = time.AfterFunc(interval, func() {
		c.mu.Lock()
		c.repeat++
		ev := c.buildEvent(count, c.repeat, time.Now())
		onEvent := c.onEvent
		c.armRepeatLocked(count)
		c.mu.Unlock()
		if onEvent != nil {
			onEvent(ev)
		}
	})
}

// cancelRepeatLocked cancels repeat locked.
func (c *Comparator) cancelRepeatLocked() {
	if c.repeatTimer != nil {
		c.repeatTimer.Stop()
		c.repeatTimer = nil
	}
}

// StartupEvent builds the "startup" event a watcher emits once at
// process start, per §6's event schema and watcher.cpp's emitStartEvent.
func (c *Comparator) StartupEvent(now time.Time) Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var maskTime int64
	if c.mask != nil {
		maskTime = c.mask.ModTime().Unix()
	}
	return Event{
		App:       c.appName,
		Version:   1,
		PID:       c.pid,
		Time:      now.Unix(),
		EventName: "startup",
		Squelch:   c.cfg.Squelch,
		Threshold: c.cfg.Threshold,
		Equalise:  boolToInt(c.cfg.Equalise),
		Mask:      c.maskPath,
		MaskTime:  maskTime,
	}
}

// buildEvent builds event.
func (c *Comparator) buildEvent(count, repeat int, now time.Time) Event {
	var maskTime int64
	if c.mask != nil {
		maskTime = c.mask.ModTime().Unix()
	}
	return Event{
		App:       c.appName,
		Version:   1,
		PID:       c.pid,
		Time:      now.Unix(),
		EventName: "changes",
		Squelch:   c.cfg.Squelch,
		Threshold: c.cfg.Threshold,
		Equalise:  boolToInt(c.cfg.Equalise),
		Mask:      c.maskPath,
		MaskTime:  maskTime,
		DX:        c.dx,
		DY:        c.dy,
		Count:     count,
		Repeat:    repeat,
	}
}

// reloadMaskIfNeeded reloads mask if needed.
func (c *Comparator) reloadMaskIfNeeded(dx, dy int) error {
	if c.maskPath == "" {
		return nil
	}
	info, err := os.Stat(c.maskPath)
	if err != nil {
		return err
	}
	if c.mask != nil && c.mask.dx == dx && c.mask.dy == dy && !info.ModTime().After(c.mask.mtime) {
		return nil
	}
	m, err := LoadMask(c.maskPath, dx, dy)
	if err != nil {
		return err
	}
	c.mask = m
	return nil
}

