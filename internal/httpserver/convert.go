// If you are AI: This file converts a channel frame to the type and scale an HTTP client requested.

package httpserver

import (
	"github.com/graeme-walker/videotools/internal/bus"
	"github.com/graeme-walker/videotools/internal/imageconv"
)

// parseWantType interprets the ?type= query value of §4.6. Unlike
// imageconv.ParseImageType (which round-trips the canonical
// "raw(dx,dy,channels)" form used for frame tagging), the HTTP query
// only ever names "raw" bare — the actual dimensions come from whatever
// ToRaw decodes, not from the request.
func parseWantType(s string) (imageconv.ImageType, error) {
	if s == "raw" {
		return imageconv.ImageType{Kind: imageconv.KindRaw}, nil
	}
	return imageconv.ParseImageType(s)
}

// convertFrame renders a bus.Frame as the requested wire type, per §4.9:
// "any" passes the published bytes through untouched; jpeg/pnm/raw go
// through ImageConverter, decoding first if the published type differs.
func convertFrame(frame bus.Frame, scale int, want imageconv.ImageType, quality int) (imageconv.Image, error) {
	srcType, err := imageconv.ParseImageType(frame.Type)
	if err != nil {
		srcType = imageconv.Any
	}
	in := imageconv.Image{Type: srcType, Bytes: frame.Payload}

	switch want.Kind {
	case imageconv.KindJPEG:
		return imageconv.ToJPEG(in, quality)
	case imageconv.KindRaw, imageconv.KindPNM:
		raw, err := imageconv.ToRaw(in, scale, false)
		if err != nil {
			return imageconv.Image{}, err
		}
		if want.Kind == imageconv.KindPNM {
			return imageconv.EncodePNM(raw)
		}
		return raw, nil
	default: // any
		return in, nil
	}
}

// contentType maps an ImageType to the MIME type written in a response
// or multipart part header.
func contentType(t imageconv.ImageType) string {
	switch t.Kind {
	case imageconv.KindJPEG:
		return "image/jpeg"
	case imageconv.KindPNG:
		return "image/png"
	case imageconv.KindPNM:
		return "image/x-portable-anymap"
	case imageconv.KindRaw:
		return "application/octet-stream"
	default:
		return "application/octet-stream"
	}
}
