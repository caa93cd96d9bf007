package filestore

import "testing"

func TestPathIsDeterministic(t *testing.T) {
	et := EpochTime{Sec: 1700000000, Usec: 0}
	p1 := Path("/v", "cam", et, "jpeg", false, 0)
	p2 := Path("/v", "cam", et, "jpeg", false, 0)
	if p1 != p2 {
		t.Fatalf("Path is not deterministic: %q != %q", p1, p2)
	}
}

func TestPathLayout(t *testing.T) {
	et := EpochTime{Sec: 1700000000, Usec: 0}
	got := Path("/v", "cam", et, "jpeg", false, 0)
	want := "/v/2023/11/14/22/cam-221320.jpg"
	if got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
}

func TestPathFastModeAddsMillisecondSuffix(t *testing.T) {
	et := EpochTime{Sec: 1700000000, Usec: 123000}
	got := Path("/v", "cam", et, "jpeg", true, 0)
	want := "/v/2023/11/14/22/cam-221320.123.jpg"
	if got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
}

func TestPathAppliesTimezoneOffset(t *testing.T) {
	et := EpochTime{Sec: 1700000000, Usec: 0}
	utc := Path("/v", "cam", et, "jpeg", false, 0)
	shifted := Path("/v", "cam", et, "jpeg", false, 3600)
	if utc == shifted {
		t.Fatalf("tzOffsetSeconds had no effect")
	}
	want := "/v/2023/11/14/23/cam-231320.jpg"
	if shifted != want {
		t.Fatalf("Path() with offset = %q, want %q", shifted, want)
	}
}

func TestPathSameSecondCollisionAvoidedByFastMode(t *testing.T) {
	a := Path("/v", "cam", EpochTime{Sec: 1700000000, Usec: 100000}, "jpeg", true, 0)
	b := Path("/v", "cam", EpochTime{Sec: 1700000000, Usec: 400000}, "jpeg", true, 0)
	if a == b {
		t.Fatalf("two distinct sub-second timestamps in fast mode produced the same path")
	}
}
