// If you are AI: This file implements colour-space and subsampling transforms on raw pixel buffers.

package imageconv

import "fmt"

// ToGrey collapses a raw RGB(3) image to raw grey(1) using the Rec. 601
// luma weights. A raw image that is already single-channel is returned
// unchanged.
func ToGrey(img Image) (Image, error) {
	if img.Type.Kind != KindRaw {
		return Image{}, fmt.Errorf("imageconv: ToGrey requires a raw image, got %s", img.Type)
	}
	if img.Type.Channels == 1 {
		return img, nil
	}
	if img.Type.Channels != 3 {
		return Image{}, fmt.Errorf("imageconv: ToGrey does not support %d channels", img.Type.Channels)
	}
	n := img.Type.DX * img.Type.DY
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		r := int(img.Bytes[i*3])
		g := int(img.Bytes[i*3+1])
		b := int(img.Bytes[i*3+2])
		out[i] = byte((299*r + 587*g + 114*b) / 1000)
	}
	return Image{Type: Raw(img.Type.DX, img.Type.DY, 1), Bytes: out}, nil
}

// Rescale subsamples a raw image by an integer divisor, taking the
// top-left pixel of each scale x scale block (nearest-neighbour — fast
// and sufficient for motion analysis at reduced resolution, per §4.5).
// scale <= 1 returns the image unchanged.
func Rescale(img Image, scale int) (Image, error) {
	if img.Type.Kind != KindRaw {
		return Image{}, fmt.Errorf("imageconv: Rescale requires a raw image, got %s", img.Type)
	}
	if scale <= 1 {
		return img, nil
	}
	ch := img.Type.Channels
	srcDX, srcDY := img.Type.DX, img.Type.DY
	dstDX, dstDY := srcDX/scale, srcDY/scale
	if dstDX == 0 || dstDY == 0 {
		return Image{}, fmt.Errorf("imageconv: scale %d too large for %dx%d image", scale, srcDX, srcDY)
	}
	out := make([]byte, dstDX*dstDY*ch)
	for y := 0; y < dstDY; y++ {
		sy := y * scale
		for x := 0; x < dstDX; x++ {
			sx := x * scale
			srcOff := (sy*srcDX + sx) * ch
			dstOff := (y*dstDX + x) * ch
			copy(out[dstOff:dstOff+ch], img.Bytes[srcOff:srcOff+ch])
		}
	}
	return Image{Type: Raw(dstDX, dstDY, ch), Bytes: out}, nil
}
