// If you are AI: This file implements a PubChannel's single-writer side.

package bus

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Publisher is the single writer side of a channel. Only one process may
// hold a Publisher for a given name at a time (§4.2).
type Publisher struct {
	mu         sync.Mutex
	seg        *segment
	name       string
	maxPayload int
	slotCount  int
	seq        uint64
	closed     bool

	wakeupFDs map[int]int // slot index -> cached nonblocking write fd
}

// CreatePublisher creates (or reclaims an abandoned) named channel. It
// fails with ErrPublisherExists if another live process already
// publishes under name.
func CreatePublisher(name string, maxPayloadBytes, slotCount int, metadata []byte) (*Publisher, error) {
	seg, err := createSegment(name, maxPayloadBytes, slotCount, metadata)
	if err != nil {
		return nil, err
	}
	seg.setMetadata(metadata)
	p := &Publisher{
		seg:        seg,
		name:       name,
		maxPayload: maxPayloadBytes,
		slotCount:  slotCount,
		wakeupFDs:  make(map[int]int),
	}
	return p, nil
}

// Publish serialises (type, time, payload) into the next generation of
// the double-buffered slot, advances the published sequence number with
// release ordering, and wakes live subscribers. It never blocks on a
// subscriber.
func (p *Publisher) Publish(payload []byte, typ string, t EpochTime) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if len(payload) > p.maxPayload {
		return ErrPayloadTooLarge
	}

	next := p.seq + 1
	which := int(next % 2)
	p.seg.writePayload(which, typ, t, payload)
	p.seg.storeSeq(next) // release: payload bytes are visible before seq advances
	p.seq = next

	p.wakeSubscribers()
	return nil
}

// wakeSubscribers writes one byte to every occupied subscriber slot's
// wakeup pipe, best effort; a dead subscriber's write failure is ignored
// so it can never stall the publisher (§4.2 point 3).
func (p *Publisher) wakeSubscribers() {
	for i := 0; i < p.slotCount; i++ {
		occupied, _, _ := p.readSlotEntry(i)
		if !occupied {
			continue
		}
		fd, ok := p.wakeupFDs[i]
		if !ok {
			opened, err := unix.Open(wakeupPath(p.name, i), unix.O_WRONLY|unix.O_NONBLOCK, 0)
			if err != nil {
				continue
			}
			fd = opened
			p.wakeupFDs[i] = fd
		}
		unix.Write(fd, []byte{1})
	}
}

// readSlotEntry reads slot entry.
func (p *Publisher) readSlotEntry(i int) (occupied bool, pid int, lastSeen uint64) {
	off := subEntryOffset(p.maxPayload, p.slotCount, i)
	state := p.seg.buf[off+12]
	return state != 0, 0, 0
}

// Info returns the channel's administrative metadata.
func (p *Publisher) Info() ChannelInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ChannelInfo{
		Name:         p.name,
		PublisherPID: os.Getpid(),
		Metadata:     string(p.seg.metadata()),
		SlotCount:    p.slotCount,
		MaxPayload:   p.maxPayload,
	}
}

// Close tears the channel down: clears the publisher PID so the segment
// is reclaimable, closes cached wakeup fds, unmaps the segment. It does
// not remove the backing file — Delete (an operator action) does that,
// mirroring §4.2's "destroyed only when its publisher terminates cleanly
// or an operator issues a purge/delete".
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.seg.setPublisherPID(0)
	for _, fd := range p.wakeupFDs {
		unix.Close(fd)
	}
	return p.seg.close()
}
