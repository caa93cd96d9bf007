// If you are AI: This file wraps the JPEG and PNG codecs behind imageconv's decode/encode facade.

package imageconv

import (
	"bytes"
	"fmt"
	goimage "image"
	"image/jpeg"
	"image/png"
)

// DecodeToRaw decodes an encoded image (JPEG, PNG or PNM) to a full-
// resolution raw image: RGB(3) for JPEG, PNG and P6 PNM, single-channel
// for P5 PNM. A raw input is returned unchanged.
func DecodeToRaw(img Image) (Image, error) {
	switch img.Type.Kind {
	case KindRaw:
		return img, nil
	case KindJPEG:
		decoded, err := jpeg.Decode(bytes.NewReader(img.Bytes))
		if err != nil {
			return Image{}, fmt.Errorf("imageconv: jpeg decode: %w", err)
		}
		return fromStdImage(decoded), nil
	case KindPNG:
		decoded, err := png.Decode(bytes.NewReader(img.Bytes))
		if err != nil {
			return Image{}, fmt.Errorf("imageconv: png decode: %w", err)
		}
		return fromStdImage(decoded), nil
	case KindPNM:
		return decodePNM(img.Bytes)
	default:
		return Image{}, fmt.Errorf("imageconv: cannot decode image of type %s", img.Type)
	}
}

// EncodeJPEG encodes a raw image (grey or RGB) as JPEG at the given
// quality (1-100; 0 selects image/jpeg's default).
func EncodeJPEG(img Image, quality int) (Image, error) {
	if img.Type.Kind != KindRaw {
		return Image{}, fmt.Errorf("imageconv: EncodeJPEG requires a raw image, got %s", img.Type)
	}
	std, err := toStdImage(img)
	if err != nil {
		return Image{}, err
	}
	opts := &jpeg.Options{Quality: quality}
	if quality <= 0 {
		opts.Quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, std, opts); err != nil {
		return Image{}, fmt.Errorf("imageconv: jpeg encode: %w", err)
	}
	return Image{Type: JPEG, Bytes: buf.Bytes()}, nil
}

// EncodePNG encodes a raw image (grey or RGB) as PNG.
func EncodePNG(img Image) (Image, error) {
	if img.Type.Kind != KindRaw {
		return Image{}, fmt.Errorf("imageconv: EncodePNG requires a raw image, got %s", img.Type)
	}
	std, err := toStdImage(img)
	if err != nil {
		return Image{}, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, std); err != nil {
		return Image{}, fmt.Errorf("imageconv: png encode: %w", err)
	}
	return Image{Type: PNG, Bytes: buf.Bytes()}, nil
}

// toStdImage converts a raw Image to an image.Image for the stdlib codecs.
func toStdImage(img Image) (goimage.Image, error) {
	dx, dy := img.Type.DX, img.Type.DY
	switch img.Type.Channels {
	case 1:
		gray := goimage.NewGray(goimage.Rect(0, 0, dx, dy))
		copy(gray.Pix, img.Bytes)
		return gray, nil
	case 3:
		rgba := goimage.NewNRGBA(goimage.Rect(0, 0, dx, dy))
		for i := 0; i < dx*dy; i++ {
			rgba.Pix[i*4] = img.Bytes[i*3]
			rgba.Pix[i*4+1] = img.Bytes[i*3+1]
			rgba.Pix[i*4+2] = img.Bytes[i*3+2]
			rgba.Pix[i*4+3] = 0xFF
		}
		return rgba, nil
	default:
		return nil, fmt.Errorf("imageconv: unsupported channel count %d", img.Type.Channels)
	}
}

// fromStdImage flattens a decoded stdlib image into raw RGB(3), the
// converter's canonical decoded form.
func fromStdImage(src goimage.Image) Image {
	bounds := src.Bounds()
	dx, dy := bounds.Dx(), bounds.Dy()
	out := make([]byte, dx*dy*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			out[i] = byte(r >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(b >> 8)
			i += 3
		}
	}
	return Image{Type: Raw(dx, dy, 3), Bytes: out}
}
