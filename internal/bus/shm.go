// If you are AI: This file owns the POSIX shared-memory segment layout a PubChannel lives in.

package bus

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// shmDir is the directory that backs named segments. Real POSIX shared
// memory objects live under /dev/shm on Linux; using that path directly
// (rather than shm_open's abstract namespace) is what makes "vt-<name>"
// listable by a plain directory scan, per spec §4.2's "separate listing
// utility" requirement.
var shmDir = "/dev/shm"

const (
	namePrefix  = "vt-"
	magicValue  = uint32(0x56544331) // "VTC1"
	version     = uint32(1)
	metadataCap = 256
	wakeupDirSuffix = ".subs"
)

// Layout (little-endian throughout, per spec §6):
//
//	offset 0   magic        uint32
//	offset 4   version      uint32
//	offset 8   slotCount    uint32
//	offset 12  maxPayload   uint32
//	offset 16  publisherPID uint32 (0 = no live publisher)
//	offset 20  metadataLen  uint32
//	offset 24  publishedSeq uint64 (atomic, 8-byte aligned)
//	offset 32  metadata     [metadataCap]byte
//
// followed by two payload slots (double buffer, selected by seq%2):
//
//	slotHeader: typeLen uint32, epochS int64, epochUs int64, length uint32  (24 bytes)
//	payload:    [maxPayload]byte
//	type:       [typeCap]byte
//
// followed by a slot table of slotCount subscriber entries:
//
//	pid         uint32
//	lastSeenSeq uint64
//	wakeupState uint32 (0 = free, 1 = occupied)
const (
	offMagic        = 0
	offVersion      = 4
	offSlotCount    = 8
	offMaxPayload   = 12
	offPublisherPID = 16
	offMetadataLen  = 20
	offPublishedSeq = 24
	offMetadata     = 32
	headerSize      = offMetadata + metadataCap

	payloadSlotHeaderSize = 24
	typeCap               = 32
)

const subEntrySize = 4 + 8 + 4 // pid, lastSeenSeq, wakeupState

// segment is a mapped shared-memory region plus its size, shared between
// Publisher and Subscription.
type segment struct {
	name string
	buf  []byte
	fd   int
}

// createSegment computes segment.
func createSegment(name string, maxPayload, slotCount int, metadata []byte) (*segment, error) {
	if len(metadata) > metadataCap {
		return nil, fmt.Errorf("bus: metadata exceeds %d bytes", metadataCap)
	}
	path := segmentPath(name)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0666)
	if err != nil {
		if err == unix.EEXIST {
			// Existing segment: only a live publisher blocks re-creation.
			// A segment abandoned by a crashed publisher (stale pid, or pid
			// 0 left by a clean Close) is reclaimed by deleting it and
			// recreating from scratch with the requested layout.
			if existing, openErr := openSegment(name); openErr == nil {
				pid := existing.publisherPID()
				existing.close()
				if pid != 0 && processAlive(pid) {
					return nil, ErrPublisherExists
				}
			}
			if err := unix.Unlink(path); err != nil && !os.IsNotExist(err) {
				return nil, err
			}
			fd, err = unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0666)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	size := segmentSize(maxPayload, slotCount)
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, err
	}
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	seg := &segment{name: name, buf: buf, fd: fd}
	seg.reset(maxPayload, slotCount)
	if err := os.MkdirAll(wakeupDir(name), 0755); err != nil {
		seg.close()
		return nil, err
	}
	return seg, nil
}

// reset resets its state.
func (s *segment) reset(maxPayload, slotCount int) {
	binary.LittleEndian.PutUint32(s.buf[offMagic:], magicValue)
	binary.LittleEndian.PutUint32(s.buf[offVersion:], version)
	binary.LittleEndian.PutUint32(s.buf[offSlotCount:], uint32(slotCount))
	binary.LittleEndian.PutUint32(s.buf[offMaxPayload:], uint32(maxPayload))
	binary.LittleEndian.PutUint32(s.buf[offPublisherPID:], uint32(os.Getpid()))
	binary.LittleEndian.PutUint32(s.buf[offMetadataLen:], 0)
	atomic.StoreUint64(s.seqPtr(), 0)
	for i := 0; i < slotCount; i++ {
		off := subEntryOffset(maxPayload, slotCount, i)
		binary.LittleEndian.PutUint32(s.buf[off:], 0)
		binary.LittleEndian.PutUint64(s.buf[off+4:], 0)
		binary.LittleEndian.PutUint32(s.buf[off+12:], 0)
	}
}

// openSegment computes segment.
func openSegment(name string) (*segment, error) {
	path := segmentPath(name)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	st, err := os.Stat(path)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if int(st.Size()) < headerSize {
		unix.Close(fd)
		return nil, fmt.Errorf("bus: segment %s is too small", path)
	}
	hdr, err := unix.Mmap(fd, 0, headerSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	maxPayload := int(binary.LittleEndian.Uint32(hdr[offMaxPayload:]))
	slotCount := int(binary.LittleEndian.Uint32(hdr[offSlotCount:]))
	unix.Munmap(hdr)

	full := segmentSize(maxPayload, slotCount)
	if int(st.Size()) < full {
		unix.Close(fd)
		return nil, fmt.Errorf("bus: segment %s truncated", path)
	}
	buf, err := unix.Mmap(fd, 0, full, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &segment{name: name, buf: buf, fd: fd}, nil
}

// close releases its resources.
func (s *segment) close() error {
	err := unix.Munmap(s.buf)
	unix.Close(s.fd)
	return err
}

// slotCount computes count.
func (s *segment) slotCount() int    { return int(binary.LittleEndian.Uint32(s.buf[offSlotCount:])) }
// maxPayload computes payload.
func (s *segment) maxPayload() int   { return int(binary.LittleEndian.Uint32(s.buf[offMaxPayload:])) }
// publisherPID computes pid.
func (s *segment) publisherPID() int { return int(binary.LittleEndian.Uint32(s.buf[offPublisherPID:])) }

// setPublisherPID sets publisher pid.
func (s *segment) setPublisherPID(pid int) {
	binary.LittleEndian.PutUint32(s.buf[offPublisherPID:], uint32(pid))
}

// metadata returns the segment's stored publisher metadata bytes.
func (s *segment) metadata() []byte {
	n := binary.LittleEndian.Uint32(s.buf[offMetadataLen:])
	return append([]byte(nil), s.buf[offMetadata:int(offMetadata)+int(n)]...)
}

// setMetadata sets metadata.
func (s *segment) setMetadata(meta []byte) {
	binary.LittleEndian.PutUint32(s.buf[offMetadataLen:], uint32(len(meta)))
	copy(s.buf[offMetadata:offMetadata+metadataCap], meta)
}

// seqPtr returns a pointer to the published-sequence field for use with
// sync/atomic. The offset is fixed and 8-byte aligned by construction.
func (s *segment) seqPtr() *uint64 {
	return (*uint64)(unsafe.Pointer(&s.buf[offPublishedSeq]))
}

// loadSeq loads seq.
func (s *segment) loadSeq() uint64 { return atomic.LoadUint64(s.seqPtr()) }
// storeSeq computes seq.
func (s *segment) storeSeq(v uint64) { atomic.StoreUint64(s.seqPtr(), v) }

// writePayload writes the frame into payload slot `which` (0 or 1). Must
// only be called by the publisher, which is the sole writer.
func (s *segment) writePayload(which int, typ string, t EpochTime, payload []byte) {
	if len(typ) > typeCap {
		typ = typ[:typeCap]
	}
	maxPayload := s.maxPayload()
	off := payloadSlotOffset(maxPayload, which)
	binary.LittleEndian.PutUint32(s.buf[off:], uint32(len(typ)))
	binary.LittleEndian.PutUint64(s.buf[off+4:], uint64(t.Sec))
	binary.LittleEndian.PutUint64(s.buf[off+12:], uint64(t.Usec))
	binary.LittleEndian.PutUint32(s.buf[off+20:], uint32(len(payload)))
	base := off + payloadSlotHeaderSize
	copy(s.buf[base:base+maxPayload], payload)
	copy(s.buf[base+maxPayload:base+maxPayload+typeCap], []byte(typ))
}

// readPayload reads payload.
func (s *segment) readPayload(which int) (payload []byte, typ string, t EpochTime) {
	maxPayload := s.maxPayload()
	off := payloadSlotOffset(maxPayload, which)
	typeLen := int(binary.LittleEndian.Uint32(s.buf[off:]))
	sec := int64(binary.LittleEndian.Uint64(s.buf[off+4:]))
	usec := int64(binary.LittleEndian.Uint64(s.buf[off+12:]))
	length := int(binary.LittleEndian.Uint32(s.buf[off+20:]))
	base := off + payloadSlotHeaderSize
	payload = append([]byte(nil), s.buf[base:base+length]...)
	typ = string(s.buf[base+maxPayload : base+maxPayload+typeLen])
	t = EpochTime{Sec: sec, Usec: usec}
	return
}

// putUint32 writes uint32 in place.
func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
// putUint64 writes uint64 in place.
func putUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }

// processAlive reports whether pid still names a running process.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil
}
