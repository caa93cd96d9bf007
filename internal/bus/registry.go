// If you are AI: This file lists, inspects, purges and deletes PubChannels by scanning their shared-memory directory.

package bus

import (
	"encoding/binary"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// List enumerates all local publication channels by scanning shmDir for
// the "vt-" prefix, the namespace convention required by §4.2.
func List() ([]ChannelInfo, error) {
	entries, err := os.ReadDir(shmDir)
	if err != nil {
		return nil, err
	}
	var out []ChannelInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), namePrefix) {
			continue
		}
		if strings.HasSuffix(e.Name(), wakeupDirSuffix) {
			continue
		}
		name := strings.TrimPrefix(e.Name(), namePrefix)
		info, err := Info(name)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// Info returns administrative metadata for a channel without attaching a
// subscriber slot.
func Info(name string) (ChannelInfo, error) {
	seg, err := openSegment(name)
	if err != nil {
		return ChannelInfo{}, err
	}
	defer seg.close()
	return ChannelInfo{
		Name:         name,
		PublisherPID: seg.publisherPID(),
		Metadata:     string(seg.metadata()),
		SlotCount:    seg.slotCount(),
		MaxPayload:   seg.maxPayload(),
	}, nil
}

// Purge clears subscriber slots whose recorded pid is no longer a live
// process, recovering slots left behind by a subscriber that crashed
// without calling Close.
func Purge(name string) (int, error) {
	seg, err := openSegment(name)
	if err != nil {
		return 0, err
	}
	defer seg.close()

	slotCount := seg.slotCount()
	maxPayload := seg.maxPayload()
	cleared := 0
	for i := 0; i < slotCount; i++ {
		off := subEntryOffset(maxPayload, slotCount, i)
		state := seg.buf[off+12]
		if state == 0 {
			continue
		}
		pid := int(binary.LittleEndian.Uint32(seg.buf[off:]))
		if !processAlive(pid) {
			writeEntry(seg, off, 0, 0, 0)
			os.Remove(wakeupPath(name, i))
			cleared++
		}
	}
	return cleared, nil
}

// Delete removes the named channel's shared-memory segment and wakeup
// directory. It is only safe when no live publisher holds it.
func Delete(name string) error {
	seg, err := openSegment(name)
	if err != nil {
		return err
	}
	pid := seg.publisherPID()
	seg.close()
	if pid != 0 && processAlive(pid) {
		return ErrChannelInUse
	}
	if err := unix.Unlink(segmentPath(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.RemoveAll(wakeupDir(name))
}
