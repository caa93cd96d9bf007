// If you are AI: This file serves a single channel as either one frame or a multipart stream.

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/graeme-walker/videotools/internal/bus"
	"github.com/graeme-walker/videotools/internal/imageconv"
)

const multipartBoundary = "videotoolsframe"

// serveChannel is the core of §4.6: open a Subscription, wait for its
// first frame (bounded by the initial-data timeout), then either stream
// multipart/x-mixed-replace or serve one frame with optional Refresh.
func (s *Server) serveChannel(w http.ResponseWriter, r *http.Request, name string) {
	sub, err := bus.Open(name)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	defer sub.Close()

	q := r.URL.Query()
	streaming := q.Get("streaming") == "1"
	scale := parseIntDefault(q.Get("scale"), 1)
	wantType, err := parseWantType(q.Get("type"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	refresh := q.Get("refresh")

	frame, ok, err := sub.Peek()
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if !ok {
		waitCtx, cancel := context.WithTimeout(r.Context(), s.cfg.InitialDataTimeout)
		defer cancel()
		frame, err = sub.Receive(waitCtx)
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}

	if streaming {
		s.streamFrames(w, r, sub, frame, scale, wantType)
		return
	}
	s.serveSingleFrame(w, frame, scale, wantType, refresh)
}

// parseIntDefault parses int default.
func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// serveSingleFrame answers a non-streaming request with the current
// frame, setting Refresh when requested.
func (s *Server) serveSingleFrame(w http.ResponseWriter, frame bus.Frame, scale int, wantType imageconv.ImageType, refresh string) {
	out, err := convertFrame(frame, scale, wantType, s.cfg.JPEGQuality)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType(out.Type))
	if refresh != "" {
		w.Header().Set("Refresh", refresh)
	}
	w.Write(out.Bytes)
}

// streamFrames writes a multipart/x-mixed-replace response, one part per
// frame. A per-write deadline implements §4.6's backpressure policy: a
// slow client that can't absorb the next frame gets it dropped, not a
// stalled connection. repeat_timeout_ms re-sends the last frame to keep
// intermediaries (proxies, browsers) from timing out an idle stream.
func (s *Server) streamFrames(w http.ResponseWriter, r *http.Request, sub *bus.Subscription, first bus.Frame, scale int, wantType imageconv.ImageType) {
	w.Header().Set("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", multipartBoundary))
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	last := first
	if !s.writePart(w, flusher, last, scale, wantType) {
		return
	}

	for {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RepeatTimeout)
		frame, err := sub.Receive(ctx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				if !s.writePart(w, flusher, last, scale, wantType) {
					return
				}
				continue
			}
			return // client gone or publisher gone
		}
		last = frame
		if !s.writePart(w, flusher, last, scale, wantType) {
			return
		}
	}
}

// writePart writes one multipart section. A write error (including one
// triggered by the response controller's write deadline) drops this
// frame and bumps the skip counter rather than tearing the connection
// down, matching §4.6's "drop that frame rather than stall".
func (s *Server) writePart(w http.ResponseWriter, flusher http.Flusher, frame bus.Frame, scale int, wantType imageconv.ImageType) bool {
	out, err := convertFrame(frame, scale, wantType, s.cfg.JPEGQuality)
	if err != nil {
		s.logger.Printf("httpserver: convert frame: %v", err)
		return true
	}

	rc := http.NewResponseController(w)
	rc.SetWriteDeadline(time.Now().Add(2 * time.Second))
	defer rc.SetWriteDeadline(time.Time{})

	part := fmt.Sprintf("\r\n--%s\r\nContent-Type: %s\r\n\r\n", multipartBoundary, contentType(out.Type))
	buf := make([]byte, 0, len(part)+len(out.Bytes))
	buf = append(buf, part...)
	buf = append(buf, out.Bytes...)
	_, err = w.Write(buf)
	if err != nil {
		if isTimeout(err) {
			s.skippedFrames.Add(1)
			return true
		}
		return false
	}
	if flusher != nil {
		flusher.Flush()
	}
	return true
}

// isTimeout reports whether err is a write-deadline timeout.
func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	var t timeouter
	if errors.As(err, &t) {
		return t.Timeout()
	}
	return false
}
