// If you are AI: This file routes HttpServerCore's non-streaming endpoints.

package httpserver

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/graeme-walker/videotools/internal/bus"
	"github.com/graeme-walker/videotools/internal/commandbus"
)

// handleRoot is the single entry point for everything but /healthz and
// /ws/events: "/" (default channel), "/_<name>" or "/_<N>" (channel by
// name or index), "/__" (JSON channel listing), and "/<relpath>" (static
// file), per spec §4.6.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if port, msg, ok := parseSendQuery(r.URL.Query()); ok {
		s.handleSend(w, port, msg)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/":
		s.serveChannel(w, r, s.cfg.DefaultChannel)
	case path == "/__":
		s.serveListing(w, r)
	case strings.HasPrefix(path, "/_"):
		s.serveChannelRef(w, r, strings.TrimPrefix(path, "/_"))
	default:
		s.serveStatic(w, r, path)
	}
}

// parseSendQuery splits a "send=<port> <msg>" query value, per §4.6/§6.
func parseSendQuery(q map[string][]string) (port, msg string, ok bool) {
	vals, present := q["send"]
	if !present || len(vals) == 0 || vals[0] == "" {
		return "", "", false
	}
	parts := strings.SplitN(vals[0], " ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// handleSend forwards msg as a UDP datagram to (gateway, port), enabled
// only when --gateway is configured.
func (s *Server) handleSend(w http.ResponseWriter, port, msg string) {
	if s.cfg.GatewayAddr == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	addr := s.cfg.GatewayAddr + ":" + port
	if err := commandbus.Send("udp", addr, msg); err != nil {
		s.logger.Printf("httpserver: send to %s: %v", addr, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// serveChannelRef resolves "/_<name>" and "/_<N>" references. A purely
// numeric ref is a 0-based index into the alphabetically sorted channel
// list (so the ordering is stable across calls without requiring the
// registry to track insertion order); anything else is a channel name.
func (s *Server) serveChannelRef(w http.ResponseWriter, r *http.Request, ref string) {
	if ref == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if n, err := strconv.Atoi(ref); err == nil {
		infos, err := bus.List()
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		sortChannelInfos(infos)
		if n < 0 || n >= len(infos) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s.serveChannel(w, r, infos[n].Name)
		return
	}
	s.serveChannel(w, r, ref)
}

// serveListing answers "/__" with the channel list JSON, per §6's
// "{name, publisher_pid, metadata}" shape.
func (s *Server) serveListing(w http.ResponseWriter, r *http.Request) {
	infos, err := bus.List()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	sortChannelInfos(infos)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		s.logger.Printf("httpserver: encode listing: %v", err)
	}
}

// sortChannelInfos sorts channel infos.
func sortChannelInfos(infos []bus.ChannelInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
}

// serveStatic serves a file under --dir, rejecting any path containing
// "..", per §4.6's "Path traversal must be rejected".
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request, reqPath string) {
	if s.cfg.StaticDir == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if strings.Contains(reqPath, "..") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rel := strings.TrimPrefix(filepath.Clean("/"+reqPath), "/")
	http.ServeFile(w, r, filepath.Join(s.cfg.StaticDir, rel))
}
