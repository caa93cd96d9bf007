// If you are AI: This file computes byte offsets into a PubChannel segment's layout.

package bus

import (
	"fmt"
	"path/filepath"
)

// payloadSlotSize returns the byte size of one payload slot: header,
// payload capacity and type-string capacity.
func payloadSlotSize(maxPayload int) int {
	return payloadSlotHeaderSize + maxPayload + typeCap
}

// payloadSlotsOffset returns where the two payload slots begin.
func payloadSlotsOffset() int { return headerSize }

// payloadSlotOffset returns where payload slot `which` begins.
func payloadSlotOffset(maxPayload, which int) int {
	return payloadSlotsOffset() + which*payloadSlotSize(maxPayload)
}

// subTableOffset returns where the subscriber slot table begins.
func subTableOffset(maxPayload int) int {
	return payloadSlotsOffset() + 2*payloadSlotSize(maxPayload)
}

// subEntryOffset returns where subscriber slot i's entry begins.
func subEntryOffset(maxPayload, slotCount, i int) int {
	return subTableOffset(maxPayload) + i*subEntrySize
}

// segmentSize returns the total byte size of a segment with the given
// payload capacity and subscriber slot count.
func segmentSize(maxPayload, slotCount int) int {
	return subTableOffset(maxPayload) + slotCount*subEntrySize
}

// segmentPath returns the /dev/shm path backing a named channel.
func segmentPath(name string) string {
	return filepath.Join(shmDir, namePrefix+name)
}

// wakeupDir returns the directory holding a channel's per-subscriber
// wakeup FIFOs.
func wakeupDir(name string) string {
	return filepath.Join(shmDir, namePrefix+name+wakeupDirSuffix)
}

// wakeupPath returns the FIFO path for subscriber slot `slot`.
func wakeupPath(name string, slot int) string {
	return filepath.Join(wakeupDir(name), fmt.Sprintf("%d.fifo", slot))
}
