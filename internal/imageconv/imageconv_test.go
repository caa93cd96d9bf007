package imageconv

import (
	"bytes"
	"testing"
)

func TestImageTypeStringRoundTrip(t *testing.T) {
	cases := []ImageType{Raw(2, 2, 3), Raw(640, 480, 1), JPEG, PNG, PNM, Any}
	for _, c := range cases {
		s := c.String()
		got, err := ParseImageType(s)
		if err != nil {
			t.Fatalf("ParseImageType(%q): %v", s, err)
		}
		if got != c {
			t.Errorf("round trip %q: got %+v, want %+v", s, got, c)
		}
	}
}

func TestReadTypeSniffsMagic(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want Kind
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, KindJPEG},
		{"png", append([]byte{0x89}, []byte("PNG\r\n\x1a\n")...), KindPNG},
		{"pnm", []byte("P6\n2 2\n255\n"), KindPNM},
	}
	for _, c := range cases {
		got, err := ReadType(c.data)
		if err != nil {
			t.Fatalf("%s: ReadType: %v", c.name, err)
		}
		if got.Kind != c.want {
			t.Errorf("%s: Kind = %v, want %v", c.name, got.Kind, c.want)
		}
	}
}

func TestReadTypeRejectsGarbage(t *testing.T) {
	if _, err := ReadType([]byte("not an image")); err == nil {
		t.Fatal("expected an error for unrecognised data")
	}
}

func TestToGreyLuma(t *testing.T) {
	// A single red pixel should luma-weight down per Rec. 601.
	img := Image{Type: Raw(1, 1, 3), Bytes: []byte{255, 0, 0}}
	grey, err := ToGrey(img)
	if err != nil {
		t.Fatalf("ToGrey: %v", err)
	}
	if grey.Type.Channels != 1 {
		t.Fatalf("channels = %d, want 1", grey.Type.Channels)
	}
	if grey.Bytes[0] != 76 { // 299*255/1000 = 76.245 -> 76
		t.Errorf("grey value = %d, want 76", grey.Bytes[0])
	}
}

func TestRescaleTakesTopLeftOfEachBlock(t *testing.T) {
	// 4x4 grey image, values 0..15 row-major; scale 2 should keep (0,0),
	// (2,0), (0,2), (2,2).
	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = byte(i)
	}
	img := Image{Type: Raw(4, 4, 1), Bytes: buf}
	out, err := Rescale(img, 2)
	if err != nil {
		t.Fatalf("Rescale: %v", err)
	}
	if out.Type.DX != 2 || out.Type.DY != 2 {
		t.Fatalf("dims = %dx%d, want 2x2", out.Type.DX, out.Type.DY)
	}
	want := []byte{0, 2, 8, 10}
	if !bytes.Equal(out.Bytes, want) {
		t.Errorf("Rescale = %v, want %v", out.Bytes, want)
	}
}

func TestRescaleScaleOneIsNoop(t *testing.T) {
	img := Image{Type: Raw(2, 2, 1), Bytes: []byte{1, 2, 3, 4}}
	out, err := Rescale(img, 1)
	if err != nil {
		t.Fatalf("Rescale: %v", err)
	}
	if !bytes.Equal(out.Bytes, img.Bytes) {
		t.Errorf("Rescale(scale=1) altered bytes: %v", out.Bytes)
	}
}

func TestJPEGRoundTrip(t *testing.T) {
	raw := Image{Type: Raw(4, 4, 3), Bytes: make([]byte, 4*4*3)}
	for i := range raw.Bytes {
		raw.Bytes[i] = byte(i * 7 % 256)
	}
	jpegImg, err := ToJPEG(raw, 90)
	if err != nil {
		t.Fatalf("ToJPEG: %v", err)
	}
	if jpegImg.Type.Kind != KindJPEG {
		t.Fatalf("type = %v, want jpeg", jpegImg.Type)
	}
	got, err := ReadType(jpegImg.Bytes)
	if err != nil || got.Kind != KindJPEG {
		t.Fatalf("ReadType on encoded bytes = %v, %v", got, err)
	}

	back, err := ToRaw(jpegImg, 1, false)
	if err != nil {
		t.Fatalf("ToRaw: %v", err)
	}
	if back.Type.DX != 4 || back.Type.DY != 4 || back.Type.Channels != 3 {
		t.Fatalf("decoded dims = %+v", back.Type)
	}
}

func TestPNMRoundTrip(t *testing.T) {
	raw := Image{Type: Raw(3, 2, 3), Bytes: []byte{
		10, 20, 30, 40, 50, 60, 70, 80, 90,
		11, 21, 31, 41, 51, 61, 71, 81, 91,
	}}
	encoded, err := EncodePNM(raw)
	if err != nil {
		t.Fatalf("EncodePNM: %v", err)
	}
	decoded, err := DecodeToRaw(encoded)
	if err != nil {
		t.Fatalf("DecodeToRaw: %v", err)
	}
	if decoded.Type.DX != 3 || decoded.Type.DY != 2 || decoded.Type.Channels != 3 {
		t.Fatalf("dims = %+v", decoded.Type)
	}
	if !bytes.Equal(decoded.Bytes, raw.Bytes) {
		t.Errorf("PNM round trip mismatch: got %v, want %v", decoded.Bytes, raw.Bytes)
	}
}

func TestToRawIsNoopForMatchingRaw(t *testing.T) {
	raw := Image{Type: Raw(2, 2, 1), Bytes: []byte{1, 2, 3, 4}}
	out, err := ToRaw(raw, 1, false)
	if err != nil {
		t.Fatalf("ToRaw: %v", err)
	}
	if !bytes.Equal(out.Bytes, raw.Bytes) {
		t.Errorf("ToRaw altered an already-matching raw image")
	}
}
