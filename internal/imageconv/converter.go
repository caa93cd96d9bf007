// If you are AI: This file implements ToRaw, the facade's decode-then-normalize entry point.

package imageconv

import "fmt"

// ToRaw decodes in (if encoded) to raw RGB(3), then applies scale and
// monochrome in that order. A raw input whose scale and channel count
// already match the request is returned with its buffer untouched —
// the "buffer copy" case of §4.9.
func ToRaw(in Image, scale int, monochrome bool) (Image, error) {
	raw, err := DecodeToRaw(in)
	if err != nil {
		return Image{}, err
	}
	if scale > 1 {
		raw, err = Rescale(raw, scale)
		if err != nil {
			return Image{}, err
		}
	}
	if monochrome {
		raw, err = ToGrey(raw)
		if err != nil {
			return Image{}, err
		}
	}
	return raw, nil
}

// ToJPEG encodes in as JPEG at the given quality. A JPEG input is passed
// through unchanged; anything else is decoded to raw RGB(3) first.
func ToJPEG(in Image, quality int) (Image, error) {
	if in.Type.Kind == KindJPEG {
		out := make([]byte, len(in.Bytes))
		copy(out, in.Bytes)
		return Image{Type: JPEG, Bytes: out}, nil
	}
	raw, err := DecodeToRaw(in)
	if err != nil {
		return Image{}, fmt.Errorf("imageconv: ToJPEG: %w", err)
	}
	return EncodeJPEG(raw, quality)
}
