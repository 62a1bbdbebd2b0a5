package observer

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"colonyd/internal/sim/orch"
)

type fakeSource struct{ m orch.Metrics }

func (f fakeSource) Metrics() orch.Metrics { return f.m }

func dialTest(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestSubscribeStreamsMetrics(t *testing.T) {
	src := fakeSource{m: orch.Metrics{Tick: 41, Agents: 6, MovesIssued: 3, CPUUsed: 2.5}}
	srv := httptest.NewServer(NewServer(src, nil).WSHandler())
	defer srv.Close()

	conn := dialTest(t, srv)
	defer conn.Close()

	sub := SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: Version, IntervalMs: 50}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg MetricsMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "METRICS" || msg.ProtocolVersion != Version {
		t.Fatalf("frame header = %q/%q", msg.Type, msg.ProtocolVersion)
	}
	if msg.Metrics != src.m {
		t.Fatalf("metrics = %+v, want %+v", msg.Metrics, src.m)
	}
}

func TestBadHandshakeCloses(t *testing.T) {
	srv := httptest.NewServer(NewServer(fakeSource{}, nil).WSHandler())
	defer srv.Close()

	conn := dialTest(t, srv)
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "HELLO"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close after bad handshake")
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000":  true,
		"[::1]:5000":      true,
		"10.0.0.8:5000":   false,
		"93.184.216.34:1": false,
		"not-an-ip":       false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Errorf("isLoopbackRemote(%q) = %v, want %v", addr, got, want)
		}
	}
}
