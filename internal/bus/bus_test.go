package bus

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func testChannelName(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	shmDir = dir
	return fmt.Sprintf("t%d", os.Getpid())
}

func mustPublisher(t *testing.T, name string, maxPayload, slots int) *Publisher {
	t.Helper()
	p, err := CreatePublisher(name, maxPayload, slots, []byte("test"))
	if err != nil {
		t.Fatalf("CreatePublisher: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func mustSubscriber(t *testing.T, name string) *Subscription {
	t.Helper()
	s, err := Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Scenario 1: create channel t1 (max_payload=1024, slots=4), subscribe,
// publish a frame, verify it round-trips exactly, and verify a further
// Receive blocks until the next publish.
func TestPubSubBasic(t *testing.T) {
	name := testChannelName(t)
	pub := mustPublisher(t, name, 1024, 4)
	sub := mustSubscriber(t, name)

	payload := []byte("hello frame")
	want := EpochTime{Sec: 1700000000, Usec: 123456}
	if err := pub.Publish(payload, "image/jpeg", want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := sub.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(f.Payload) != string(payload) {
		t.Errorf("payload = %q, want %q", f.Payload, payload)
	}
	if f.Type != "image/jpeg" {
		t.Errorf("type = %q, want image/jpeg", f.Type)
	}
	if f.Time != want {
		t.Errorf("time = %+v, want %+v", f.Time, want)
	}
	if f.Seq != 1 {
		t.Errorf("seq = %d, want 1", f.Seq)
	}

	// A further Receive with nothing new published must block until the
	// context deadline, not return immediately or re-deliver the frame.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel2()
	start := time.Now()
	_, err = sub.Receive(ctx2)
	elapsed := time.Since(start)
	if err == nil {
		t.Fatalf("Receive returned without a new publish")
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Receive returned early after %v, wanted to block near the deadline", elapsed)
	}
}

// Scenario 2: publish three frames in rapid succession; a subscriber that
// has not yet read any of them must see only the most recent on its next
// Receive (drop-to-latest).
func TestDropToLatest(t *testing.T) {
	name := testChannelName(t)
	pub := mustPublisher(t, name, 64, 4)
	sub := mustSubscriber(t, name)

	for _, b := range [][]byte{{0x01}, {0x02}, {0x03}} {
		if err := pub.Publish(b, "bin", EpochTime{}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := sub.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(f.Payload) != 1 || f.Payload[0] != 0x03 {
		t.Errorf("payload = %v, want [0x03]", f.Payload)
	}
	if f.Seq != 3 {
		t.Errorf("seq = %d, want 3", f.Seq)
	}
}

// Scenario 3: a subscriber that never reads must not block the publisher,
// and a second, attentive subscriber must still see the latest frame.
func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	name := testChannelName(t)
	pub := mustPublisher(t, name, 32, 4)
	slow := mustSubscriber(t, name)
	_ = slow // never read from
	attentive := mustSubscriber(t, name)

	const n = 1000
	for i := 0; i < n; i++ {
		payload := []byte(fmt.Sprintf("%d", i))
		if err := pub.Publish(payload, "bin", EpochTime{}); err != nil {
			t.Fatalf("Publish #%d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := attentive.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	want := fmt.Sprintf("%d", n-1)
	if string(f.Payload) != want {
		t.Errorf("payload = %q, want %q", f.Payload, want)
	}
	if f.Seq != uint64(n) {
		t.Errorf("seq = %d, want %d", f.Seq, n)
	}
}

func TestPublishRejectsOversizedPayload(t *testing.T) {
	name := testChannelName(t)
	pub := mustPublisher(t, name, 8, 2)
	err := pub.Publish(make([]byte, 9), "bin", EpochTime{})
	if err != ErrPayloadTooLarge {
		t.Fatalf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestCreatePublisherRejectsDuplicateLivePublisher(t *testing.T) {
	name := testChannelName(t)
	mustPublisher(t, name, 64, 2)
	_, err := CreatePublisher(name, 64, 2, nil)
	if err != ErrPublisherExists {
		t.Fatalf("err = %v, want ErrPublisherExists", err)
	}
}

func TestOpenFailsWhenSlotsFull(t *testing.T) {
	name := testChannelName(t)
	mustPublisher(t, name, 64, 1)
	mustSubscriber(t, name)
	_, err := Open(name)
	if err != ErrSlotsFull {
		t.Fatalf("err = %v, want ErrSlotsFull", err)
	}
}

func TestReceiveReturnsPublisherGoneAfterClose(t *testing.T) {
	name := testChannelName(t)
	pub := mustPublisher(t, name, 64, 2)
	sub := mustSubscriber(t, name)

	if err := pub.Publish([]byte{0x01}, "bin", EpochTime{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	cancel()

	pub.Close()

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	_, err := sub.Receive(ctx2)
	if err != ErrPublisherGone {
		t.Fatalf("err = %v, want ErrPublisherGone", err)
	}
}

func TestRegistryListInfoDeletePurge(t *testing.T) {
	name := testChannelName(t)
	pub := mustPublisher(t, name, 64, 2)

	infos, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, info := range infos {
		if info.Name == name {
			found = true
			if info.Metadata != "test" {
				t.Errorf("metadata = %q, want test", info.Metadata)
			}
		}
	}
	if !found {
		t.Fatalf("List did not include channel %q", name)
	}

	if err := Delete(name); err != ErrChannelInUse {
		t.Fatalf("Delete while publisher live: err = %v, want ErrChannelInUse", err)
	}

	pub.Close()
	if err := Delete(name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := Info(name); err != ErrChannelNotFound {
		t.Fatalf("Info after delete: err = %v, want ErrChannelNotFound", err)
	}
}

func TestPurgeReclaimsDeadSubscriberSlot(t *testing.T) {
	name := testChannelName(t)
	mustPublisher(t, name, 64, 1)
	sub, err := Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Simulate a crashed subscriber: forge a stale pid into its slot entry
	// without going through the normal Close path.
	off := subEntryOffset(sub.maxPayload, sub.slotCount, sub.slot)
	writeEntry(sub.seg, off, 999999, 0, 1)

	cleared, err := Purge(name)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}

	if _, err := Open(name); err != nil {
		t.Fatalf("Open after purge: %v", err)
	}
}
