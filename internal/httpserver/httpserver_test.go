package httpserver

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/graeme-walker/videotools/internal/bus"
)

func testChannel(t *testing.T, maxPayload, slots int) (*bus.Publisher, string) {
	t.Helper()
	name := fmt.Sprintf("httpservertest%d", os.Getpid())
	pub, err := bus.CreatePublisher(name, maxPayload, slots, nil)
	if err != nil {
		t.Fatalf("CreatePublisher: %v", err)
	}
	t.Cleanup(func() {
		pub.Close()
		bus.Delete(name)
	})
	return pub, name
}

func testServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.InitialDataTimeout = 200 * time.Millisecond
	cfg.RepeatTimeout = 50 * time.Millisecond
	return New(cfg, nil)
}

func TestDefaultChannelServesCurrentFrame(t *testing.T) {
	pub, name := testChannel(t, 4096, 4)
	if err := pub.Publish([]byte("hello"), "any", bus.EpochTime{Sec: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	s := testServer(t, Config{DefaultChannel: name})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.handleRoot(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "hello" {
		t.Errorf("body = %q, want %q", rr.Body.String(), "hello")
	}
}

func TestUnknownChannelReturns404(t *testing.T) {
	s := testServer(t, Config{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/_doesnotexist", nil)
	s.handleRoot(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestNoFrameWithinTimeoutReturns503(t *testing.T) {
	_, name := testChannel(t, 4096, 4)
	s := testServer(t, Config{DefaultChannel: name})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.handleRoot(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestChannelByIndex(t *testing.T) {
	pub, name := testChannel(t, 4096, 4)
	pub.Publish([]byte("framedata"), "any", bus.EpochTime{Sec: 1})

	infos, err := bus.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sortChannelInfos(infos)
	idx := -1
	for i, info := range infos {
		if info.Name == name {
			idx = i
		}
	}
	if idx == -1 {
		t.Fatalf("channel %q not found in listing", name)
	}

	s := testServer(t, Config{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/_%d", idx), nil)
	s.handleRoot(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "framedata" {
		t.Errorf("body = %q, want framedata", rr.Body.String())
	}
}

func TestListingReturnsJSONArray(t *testing.T) {
	_, name := testChannel(t, 4096, 4)

	s := testServer(t, Config{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/__", nil)
	s.handleRoot(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var infos []bus.ChannelInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &infos); err != nil {
		t.Fatalf("unmarshal listing: %v", err)
	}
	found := false
	for _, info := range infos {
		if info.Name == name {
			found = true
		}
	}
	if !found {
		t.Errorf("listing %v missing channel %q", infos, name)
	}
}

func TestStaticFileServedFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/hello.txt", []byte("static content"), 0644); err != nil {
		t.Fatalf("write static file: %v", err)
	}

	s := testServer(t, Config{StaticDir: dir})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/hello.txt", nil)
	s.handleRoot(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "static content" {
		t.Errorf("body = %q, want %q", rr.Body.String(), "static content")
	}
}

func TestStaticPathTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	s := testServer(t, Config{StaticDir: dir})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/../../etc/passwd", nil)
	s.handleRoot(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSendWithoutGatewayReturns404(t *testing.T) {
	s := testServer(t, Config{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?send=9999+hello", nil)
	s.handleRoot(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when gateway is not configured", rr.Code)
	}
}

func TestSendWithGatewayForwardsDatagram(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	s := testServer(t, Config{GatewayAddr: "127.0.0.1"})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/?send=%d+fast", port), nil)
	s.handleRoot(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}

	buf := make([]byte, 64)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}
	if string(buf[:n]) != "fast" {
		t.Errorf("forwarded datagram = %q, want %q", buf[:n], "fast")
	}
}

func TestMultipartStreamingServesFrames(t *testing.T) {
	pub, name := testChannel(t, 4096, 4)
	pub.Publish([]byte("frame1"), "any", bus.EpochTime{Sec: 1})

	s := testServer(t, Config{DefaultChannel: name})
	server := httptest.NewServer(http.HandlerFunc(s.handleRoot))
	defer server.Close()

	resp, err := http.Get(server.URL + "/?streaming=1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		t.Fatal("expected a Content-Type header for streaming response")
	}

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	if n == 0 {
		t.Fatal("expected at least the first multipart boundary/frame")
	}
}
