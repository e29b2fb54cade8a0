// Package telemetry is a small pub/sub event bus used by the routing
// core to surface route-table and forwarding activity to observers
// (the simulation harness, metrics collector, and the live API/websocket
// monitor) without coupling the core's event loop to any of them.
package telemetry

import (
	"log"
	"sync"
)

// EventType names the kind of event published on the bus.
type EventType string

const (
	EventRouteInstalled    EventType = "route_installed"
	EventRouteInvalidated  EventType = "route_invalidated"
	EventDataDelivered     EventType = "data_delivered"
	EventDataForwarded     EventType = "data_forwarded"
	EventAckSent           EventType = "ack_sent"
	EventAckRelayed        EventType = "ack_relayed"
	EventRREQSent          EventType = "rreq_sent"
	EventRREPSent          EventType = "rrep_sent"
	EventUpstreamLinkUp    EventType = "upstream_link_up"
	EventUpstreamLinkDown  EventType = "upstream_link_down"
	EventResourceSample    EventType = "resource_sample"
)

// Event is one notification on the bus.
type Event struct {
	Type      EventType `json:"type"`
	NodeID    uint8     `json:"node_id"`
	Dest      uint8     `json:"dest,omitempty"`
	NextHop   uint8     `json:"next_hop,omitempty"`
	HopCount  uint8     `json:"hop_count,omitempty"`
	PacketID  uint32    `json:"packet_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	WallMS    int64     `json:"wall_ms"`
}

// Bus is a non-blocking fan-out publisher. Subscribers that fall behind
// have events dropped rather than stall the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	logger      *log.Logger
}

// New builds a Bus. A nil logger disables drop-warning logs (used by
// tests).
func New(logger *log.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe returns a new buffered channel of published events.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 100)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Publish fans ev out to all subscribers without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			if b.logger != nil {
				b.logger.Printf("telemetry: dropping event %s for node %d, subscriber full", ev.Type, ev.NodeID)
			}
		}
	}
}
