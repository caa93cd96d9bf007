package motion

import (
	"sync"
	"testing"
	"time"

	"github.com/graeme-walker/videotools/internal/commandbus"
	"github.com/graeme-walker/videotools/internal/imageconv"
)

func greyFrame(dx, dy int, fill byte) imageconv.Image {
	buf := make([]byte, dx*dy)
	for i := range buf {
		buf[i] = fill
	}
	return imageconv.Image{Type: imageconv.Raw(dx, dy, 1), Bytes: buf}
}

func TestMotionStaticInputEmitsNoEvent(t *testing.T) {
	var events []Event
	c := New(Config{Squelch: 10, Threshold: 1}, "watcher", func(e Event) {
		events = append(events, e)
	}, nil, nil)

	frame := greyFrame(10, 10, 128)
	for i := 0; i < 10; i++ {
		if _, _, err := c.Process(frame, time.Now()); err != nil {
			t.Fatalf("Process frame %d: %v", i, err)
		}
	}
	if len(events) != 0 {
		t.Fatalf("expected no events on static input, got %d", len(events))
	}
}

func TestMotionSinglePixelChangeEmitsOneEvent(t *testing.T) {
	var events []Event
	c := New(Config{Squelch: 10, Threshold: 1}, "watcher", func(e Event) {
		events = append(events, e)
	}, nil, nil)

	buf := make([]byte, 100)
	for i := range buf {
		buf[i] = 100
	}
	base := imageconv.Image{Type: imageconv.Raw(10, 10, 1), Bytes: buf}
	for i := 0; i < 10; i++ {
		if _, _, err := c.Process(base, time.Now()); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}

	changed := append([]byte(nil), buf...)
	changed[0] += 20
	if _, _, err := c.Process(imageconv.Image{Type: imageconv.Raw(10, 10, 1), Bytes: changed}, time.Now()); err != nil {
		t.Fatalf("Process changed frame: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Count != 1 {
		t.Errorf("count = %d, want 1", events[0].Count)
	}
	if events[0].EventName != "changes" {
		t.Errorf("event name = %q, want changes", events[0].EventName)
	}
}

func TestMotionBelowThresholdEmitsNothing(t *testing.T) {
	var events []Event
	c := New(Config{Squelch: 10, Threshold: 5}, "watcher", func(e Event) {
		events = append(events, e)
	}, nil, nil)

	buf := make([]byte, 100)
	base := imageconv.Image{Type: imageconv.Raw(10, 10, 1), Bytes: buf}
	c.Process(base, time.Now())

	changed := append([]byte(nil), buf...)
	changed[0] = 255 // one pixel over squelch, but threshold needs 5
	c.Process(imageconv.Image{Type: imageconv.Raw(10, 10, 1), Bytes: changed}, time.Now())

	if len(events) != 0 {
		t.Fatalf("expected no events below threshold, got %d", len(events))
	}
}

func TestMotionTriggerFiresOnceForEachEvent(t *testing.T) {
	var triggerCount int
	var mu sync.Mutex
	trigger := func() error {
		mu.Lock()
		triggerCount++
		mu.Unlock()
		return nil
	}
	c := New(Config{Squelch: 5, Threshold: 1}, "watcher", func(Event) {}, trigger, nil)

	buf := make([]byte, 100)
	c.Process(imageconv.Image{Type: imageconv.Raw(10, 10, 1), Bytes: buf}, time.Now())

	changed := append([]byte(nil), buf...)
	changed[0] = 200
	c.Process(imageconv.Image{Type: imageconv.Raw(10, 10, 1), Bytes: changed}, time.Now())

	mu.Lock()
	defer mu.Unlock()
	if triggerCount != 1 {
		t.Errorf("trigger fired %d times, want 1", triggerCount)
	}
}

func TestApplyCommandLiveTuning(t *testing.T) {
	c := New(Config{Squelch: 10, Threshold: 1}, "watcher", func(Event) {}, nil, nil)

	c.ApplyCommand(commandbus.Command{Verb: "squelch=20"})
	c.ApplyCommand(commandbus.Command{Verb: "threshold=3"})
	c.ApplyCommand(commandbus.Command{Verb: "equalise=on"})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Squelch != 20 {
		t.Errorf("squelch = %d, want 20", c.cfg.Squelch)
	}
	if c.cfg.Threshold != 3 {
		t.Errorf("threshold = %d, want 3", c.cfg.Threshold)
	}
	if !c.cfg.Equalise {
		t.Error("equalise should be on")
	}
}

func TestApplyCommandIgnoresMalformedTokens(t *testing.T) {
	c := New(Config{Squelch: 10, Threshold: 1}, "watcher", func(Event) {}, nil, nil)
	c.ApplyCommand(commandbus.Command{Verb: "squelch=notanumber"})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.Squelch != 10 {
		t.Errorf("squelch changed to %d on malformed command, want unchanged 10", c.cfg.Squelch)
	}
}

func TestMotionMaskedPixelsExcludedFromCount(t *testing.T) {
	path := writeMaskFile(t, "P1\n2 1\n1 0\n")
	var events []Event
	c := New(Config{Squelch: 5, Threshold: 1, MaskPath: path}, "watcher", func(e Event) {
		events = append(events, e)
	}, nil, nil)

	base := imageconv.Image{Type: imageconv.Raw(2, 1, 1), Bytes: []byte{0, 0}}
	c.Process(base, time.Now())

	// Change the masked pixel only; it should not count.
	c.Process(imageconv.Image{Type: imageconv.Raw(2, 1, 1), Bytes: []byte{200, 0}}, time.Now())
	if len(events) != 0 {
		t.Fatalf("expected the masked pixel's change to be excluded, got %d events", len(events))
	}
}

func TestMotionRepeatTimerReemitsUntilCancelled(t *testing.T) {
	events := make(chan Event, 8)
	c := New(Config{IntervalMs: 20, Squelch: 5, Threshold: 1, RepeatTimeoutMs: 20}, "watcher", func(e Event) {
		events <- e
	}, nil, nil)

	buf := make([]byte, 100)
	c.Process(imageconv.Image{Type: imageconv.Raw(10, 10, 1), Bytes: buf}, time.Now())
	time.Sleep(25 * time.Millisecond)

	changed := append([]byte(nil), buf...)
	changed[0] = 255
	c.Process(imageconv.Image{Type: imageconv.Raw(10, 10, 1), Bytes: changed}, time.Now())

	first := <-events
	if first.Repeat != 0 {
		t.Fatalf("first event repeat = %d, want 0", first.Repeat)
	}
	second := <-events
	if second.Repeat != 1 {
		t.Fatalf("repeated event repeat = %d, want 1", second.Repeat)
	}

	c.mu.Lock()
	c.cancelRepeatLocked()
	c.mu.Unlock()
}
