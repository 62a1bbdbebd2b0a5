// Package observer serves a loopback-only websocket that streams the
// scheduler's per-tick metrics to local dashboards and debugging tools.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"colonyd/internal/sim/orch"
)

const Version = "1.0"

// MetricsSource is what the orchestrator exposes to the observer.
type MetricsSource interface {
	Metrics() orch.Metrics
}

type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	IntervalMs      int    `json:"interval_ms,omitempty"`
}

type MetricsMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Metrics         orch.Metrics `json:"metrics"`
}

type Server struct {
	src MetricsSource
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(src MetricsSource, logger *log.Logger) *Server {
	return &Server{
		src: src,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only anyway
		},
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad subscribe"), time.Now().Add(time.Second))
			return
		}
		if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}
		normalizeSubscribe(&sub)

		// Reader goroutine: surfaces disconnects and interval updates.
		intervals := make(chan int, 4)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var upd SubscribeMsg
				if err := json.Unmarshal(msg, &upd); err != nil {
					continue
				}
				if upd.Type != "SUBSCRIBE" || upd.ProtocolVersion != Version {
					continue
				}
				normalizeSubscribe(&upd)
				select {
				case intervals <- upd.IntervalMs:
				default:
				}
			}
		}()

		ticker := time.NewTicker(time.Duration(sub.IntervalMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case ms := <-intervals:
				ticker.Reset(time.Duration(ms) * time.Millisecond)
			case <-ticker.C:
				out := MetricsMsg{Type: "METRICS", ProtocolVersion: Version, Metrics: s.src.Metrics()}
				b, err := json.Marshal(out)
				if err != nil {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

func normalizeSubscribe(sub *SubscribeMsg) {
	if sub.IntervalMs <= 0 {
		sub.IntervalMs = 1000
	}
	if sub.IntervalMs < 50 {
		sub.IntervalMs = 50
	}
	if sub.IntervalMs > 60_000 {
		sub.IntervalMs = 60_000
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
