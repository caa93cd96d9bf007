// If you are AI: This file relays browser viewer events over WebSocket to a CommandBus endpoint.

package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/graeme-walker/videotools/internal/commandbus"
)

// ViewerEvent is the viewer-event JSON a browser-side overlay posts over
// the WebSocket, per §6's "Viewer event JSON".
type ViewerEvent struct {
	App     string `json:"app"`
	Version int    `json:"version"`
	PID     int    `json:"pid"`
	Time    int64  `json:"time"`
	Event   string `json:"event"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	X0      int    `json:"x0"`
	Y0      int    `json:"y0"`
	DX      int    `json:"dx"`
	DY      int    `json:"dy"`
	Shift   int    `json:"shift"`
	Control int    `json:"control"`
}

// handleWSEvents upgrades to a WebSocket and relays each inbound viewer
// event to the configured CommandBus endpoint, translating drag
// gestures into the FilePlayer's "ribbon" verb (§6); other events are
// not forwarded (see viewerCommand).
// It never drives the channel's own frame path: this is control-plane
// only, grounded on the teacher's wsflv.Handler for its upgrade/attach
// shape, generalized from FLV tag relay to JSON event relay.
func (s *Server) handleWSEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.GatewayAddr == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev ViewerEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Printf("httpserver: bad viewer event: %v", err)
			continue
		}
		if cmd, ok := viewerCommand(ev); ok {
			if err := commandbus.Send("udp", s.cfg.GatewayAddr, cmd); err != nil {
				s.logger.Printf("httpserver: forward viewer event: %v", err)
			}
		}
	}
}

// viewerCommand maps a pointer event to the FilePlayer's ribbon-scrub
// verb: a drag's horizontal position selects a point along the ribbon,
// per §6's "ribbon <xpos>" grammar. Other event kinds (down/up/move with
// no drag) have no FilePlayer equivalent and are not forwarded.
func viewerCommand(ev ViewerEvent) (string, bool) {
	if ev.Event != "drag" {
		return "", false
	}
	return fmt.Sprintf("ribbon %d", ev.X), true
}
