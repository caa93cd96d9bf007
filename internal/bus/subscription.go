// If you are AI: This file implements a PubChannel's multi-reader side.

package bus

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Subscription is a subscriber's handle on a channel: a bound slot index,
// a wakeup fd usable with the reactor's read set, and the sequence number
// last observed.
type Subscription struct {
	mu         sync.Mutex
	seg        *segment
	name       string
	slot       int
	maxPayload int
	slotCount  int
	lastSeen   uint64
	wakeupR    int
	closed     bool
}

// Open binds the caller to a free subscriber slot on the named channel.
func Open(name string) (*Subscription, error) {
	seg, err := openSegment(name)
	if err != nil {
		return nil, err
	}

	slotCount := seg.slotCount()
	maxPayload := seg.maxPayload()

	slot := -1
	for i := 0; i < slotCount; i++ {
		off := subEntryOffset(maxPayload, slotCount, i)
		if seg.buf[off+12] == 0 {
			slot = i
			break
		}
	}
	if slot == -1 {
		seg.close()
		return nil, ErrSlotsFull
	}

	if err := os.MkdirAll(wakeupDir(name), 0755); err != nil {
		seg.close()
		return nil, err
	}
	fifoPath := wakeupPath(name, slot)
	_ = unix.Mkfifo(fifoPath, 0600) // ignore EEXIST from a prior crashed subscriber

	// Open read end non-blocking first so a publisher opening the write end
	// afterwards doesn't block either side on the FIFO rendezvous.
	readFD, err := unix.Open(fifoPath, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		seg.close()
		return nil, err
	}

	startSeq := seg.loadSeq()
	off := subEntryOffset(maxPayload, slotCount, slot)
	writeEntry(seg, off, os.Getpid(), startSeq, 1)

	return &Subscription{
		seg:        seg,
		name:       name,
		slot:       slot,
		maxPayload: maxPayload,
		slotCount:  slotCount,
		lastSeen:   startSeq,
		wakeupR:    readFD,
	}, nil
}

// writeEntry writes entry.
func writeEntry(seg *segment, off int, pid int, lastSeen uint64, state uint32) {
	putUint32(seg.buf[off:], uint32(pid))
	putUint64(seg.buf[off+4:], lastSeen)
	putUint32(seg.buf[off+12:], state)
}

// Fd returns the wakeup pipe's read end, usable with Reactor.AddRead: it
// becomes readable whenever the publisher advances the sequence.
func (s *Subscription) Fd() int { return s.wakeupR }

// Peek reads the current slot non-destructively without consuming it.
// The second return is false if no frame has yet been published.
func (s *Subscription) Peek() (Frame, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Frame{}, false, ErrClosed
	}
	if s.publisherGone() {
		return Frame{}, false, ErrPublisherGone
	}
	seq := s.seg.loadSeq()
	if seq == 0 {
		return Frame{}, false, nil
	}
	payload, typ, t := s.readWithRetry(seq)
	return Frame{Payload: payload, Type: typ, Time: t, Seq: seq}, true, nil
}

// Receive blocks until a frame newer than the last one observed is
// available, then returns it, updating the last-seen sequence. It never
// returns an intermediate frame: if several were published since the
// last Receive, only the most recent is returned (drop-to-latest, §4.2).
func (s *Subscription) Receive(ctx context.Context) (Frame, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return Frame{}, ErrClosed
		}
		if s.publisherGone() {
			s.mu.Unlock()
			return Frame{}, ErrPublisherGone
		}
		seq := s.seg.loadSeq()
		if seq > s.lastSeen {
			payload, typ, t := s.readWithRetry(seq)
			s.lastSeen = seq
			s.writeLastSeen(seq)
			s.mu.Unlock()
			return Frame{Payload: payload, Type: typ, Time: t, Seq: seq}, nil
		}
		s.mu.Unlock()

		if err := s.waitForWakeup(ctx); err != nil {
			return Frame{}, err
		}
	}
}

// readWithRetry implements the seqlock reader side of §4.2's protocol:
// read the slot for `seq`, then re-check the published sequence; if it
// changed, the read may have torn, so retry. At most one retry is
// expected because payloads are small and writes are paced.
func (s *Subscription) readWithRetry(seq uint64) ([]byte, string, EpochTime) {
	for {
		which := int(seq % 2)
		payload, typ, t := s.seg.readPayload(which)
		if s.seg.loadSeq() == seq {
			return payload, typ, t
		}
		seq = s.seg.loadSeq()
	}
}

// writeLastSeen writes last seen.
func (s *Subscription) writeLastSeen(seq uint64) {
	off := subEntryOffset(s.maxPayload, s.slotCount, s.slot)
	putUint64(s.seg.buf[off+4:], seq)
}

// publisherGone computes gone.
func (s *Subscription) publisherGone() bool {
	return s.seg.publisherPID() == 0
}

// waitForWakeup blocks on the wakeup pipe becoming readable, draining any
// pending bytes (the publisher may have written several), or until ctx is
// done.
func (s *Subscription) waitForWakeup(ctx context.Context) error {
	fds := []unix.PollFd{{Fd: int32(s.wakeupR), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Poll(fds, 200)
		if err != nil && err != unix.EINTR {
			return err
		}
		if n > 0 && fds[0].Revents&unix.POLLIN != 0 {
			buf := make([]byte, 64)
			for {
				rn, rerr := unix.Read(s.wakeupR, buf)
				if rerr != nil || rn <= 0 {
					break
				}
			}
			return nil
		}
		// Timed out: loop to re-check ctx and publisher liveness so a
		// vanished publisher is noticed even without a final wakeup byte.
		s.mu.Lock()
		gone := s.publisherGone()
		s.mu.Unlock()
		if gone {
			return nil
		}
	}
}

// Close releases the subscriber's slot.
func (s *Subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	off := subEntryOffset(s.maxPayload, s.slotCount, s.slot)
	writeEntry(s.seg, off, 0, 0, 0)
	unix.Close(s.wakeupR)
	return s.seg.close()
}
