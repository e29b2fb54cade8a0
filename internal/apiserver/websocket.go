package apiserver

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"meshcore/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients may be served from a different origin during
	// development; the monitoring plane is not internet-facing.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsHandler upgrades to a WebSocket and streams every telemetry
// event published on bus as JSON until the client disconnects, a simple
// JSON-per-message relay.
func EventsHandler(bus *telemetry.Bus, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if logger != nil {
				logger.Printf("apiserver: websocket upgrade failed: %v", err)
			}
			return
		}
		defer conn.Close()

		sessionID := uuid.New()
		if logger != nil {
			logger.Printf("apiserver: websocket session %s connected from %s", sessionID, r.RemoteAddr)
			defer logger.Printf("apiserver: websocket session %s disconnected", sessionID)
		}

		events := bus.Subscribe()
		for ev := range events {
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}

// Server bundles the HTTP mux serving both the REST control endpoints
// and the WebSocket event feed.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires SendData/SetUpstream REST handlers plus the /ws event
// feed against ctrl and bus.
func NewServer(ctrl Controller, bus *telemetry.Bus, logger *log.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/send", SendDataHandler(ctrl))
	mux.HandleFunc("/api/upstream", SetUpstreamHandler(ctrl))
	mux.HandleFunc("/ws/events", EventsHandler(bus, logger))
	return &Server{mux: mux}
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}
