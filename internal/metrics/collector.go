// Package metrics aggregates telemetry events into delivery, ACK and
// control-plane counters and flushes them as JSON.
package metrics

import (
	"encoding/json"
	"os"
	"sync"

	"meshcore/internal/telemetry"
)

// Counters holds the running totals. JSON-tagged for Flush.
type Counters struct {
	TotalDataDelivered uint64 `json:"total_data_delivered"`
	TotalDataForwarded uint64 `json:"total_data_forwarded"`
	TotalAckSent       uint64 `json:"total_ack_sent"`
	TotalAckRelayed    uint64 `json:"total_ack_relayed"`
	TotalRREQSent      uint64 `json:"total_rreq_sent"`
	TotalRREPSent      uint64 `json:"total_rrep_sent"`
	RouteInstalls      uint64 `json:"route_installs"`
	RouteInvalidations uint64 `json:"route_invalidations"`
	UpstreamFlaps      uint64 `json:"upstream_flaps"`
}

// Collector accumulates Counters from a telemetry.Bus subscription.
type Collector struct {
	mu sync.Mutex
	Counters
}

// NewCollector builds an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Consume applies one telemetry event to the running counters. It is
// meant to run in a dedicated goroutine draining bus.Subscribe().
func (c *Collector) Consume(ev telemetry.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev.Type {
	case telemetry.EventDataDelivered:
		c.TotalDataDelivered++
	case telemetry.EventDataForwarded:
		c.TotalDataForwarded++
	case telemetry.EventAckSent:
		c.TotalAckSent++
	case telemetry.EventAckRelayed:
		c.TotalAckRelayed++
	case telemetry.EventRREQSent:
		c.TotalRREQSent++
	case telemetry.EventRREPSent:
		c.TotalRREPSent++
	case telemetry.EventRouteInstalled:
		c.RouteInstalls++
	case telemetry.EventRouteInvalidated:
		c.RouteInvalidations++
	case telemetry.EventUpstreamLinkUp, telemetry.EventUpstreamLinkDown:
		c.UpstreamFlaps++
	}
}

// Flush writes the current counters to file as indented JSON.
func (c *Collector) Flush(file string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Counters)
}
