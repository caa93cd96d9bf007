// If you are AI: This file derives a deterministic on-disk path for a persisted frame.

// Package filestore derives deterministic on-disk paths for persisted
// frames and provides ordered traversal of an existing tree of them.
package filestore

import (
	"fmt"
	"time"
)

// EpochTime mirrors bus.EpochTime without importing it, keeping filestore
// free of a dependency on the channel transport.
type EpochTime struct {
	Sec  int64
	Usec int64
}

// extForType maps an image type string to the filename extension used by
// the seed example (§6): jpeg -> jpg, everything else passes through.
func extForType(typ string) string {
	if typ == "jpeg" {
		return "jpg"
	}
	return typ
}

// Path derives the on-disk path for a frame persisted at time t with the
// given prefix and type, under base. The same input always yields the
// same output (§4.4's determinism invariant): directories are
// YYYY/MM/DD/HH, the stem is "<prefix>-HHMMSS", with a ".fff"
// millisecond suffix appended whenever fast is set, so that two frames
// landing in the same second never collide.
//
// tzOffsetSeconds shifts the UNIX time before taking the broken-down time;
// it is a fixed offset, not a location-aware one, and does not observe
// daylight-saving transitions.
func Path(base, prefix string, t EpochTime, typ string, fast bool, tzOffsetSeconds int) string {
	shifted := time.Unix(t.Sec+int64(tzOffsetSeconds), t.Usec*1000).UTC()

	dir := fmt.Sprintf("%s/%04d/%02d/%02d/%02d", base, shifted.Year(), shifted.Month(), shifted.Day(), shifted.Hour())
	stem := fmt.Sprintf("%s-%02d%02d%02d", prefix, shifted.Hour(), shifted.Minute(), shifted.Second())
	if fast {
		stem = fmt.Sprintf("%s.%03d", stem, t.Usec/1000)
	}
	return fmt.Sprintf("%s/%s.%s", dir, stem, extForType(typ))
}
