// Package apiserver is the HTTP+WebSocket operator surface over a
// running simulation: REST endpoints to drive traffic and flip upstream
// links, and a live telemetry feed.
package apiserver

import (
	"encoding/json"
	"net/http"
)

// Controller is what the API drives; scenario.Runner satisfies it.
type Controller interface {
	SendData(nodeID, dest uint8, body []byte, packetID uint32) error
	SetUpstream(nodeID uint8, up bool) error
}

type sendDataPayload struct {
	NodeID   uint8  `json:"node_id"`
	DestID   uint8  `json:"dest_id"`
	Body     string `json:"body"`
	PacketID uint32 `json:"packet_id"`
}

// SendDataHandler decodes a send-data request and forwards it to ctrl.
func SendDataHandler(ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p sendDataPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := ctrl.SendData(p.NodeID, p.DestID, []byte(p.Body), p.PacketID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte("data sent"))
	}
}

type upstreamPayload struct {
	NodeID uint8 `json:"node_id"`
	Up     bool  `json:"up"`
}

// SetUpstreamHandler decodes an upstream-link toggle request.
func SetUpstreamHandler(ctrl Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p upstreamPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := ctrl.SetUpstream(p.NodeID, p.Up); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte("upstream link updated"))
	}
}
