package core

import (
	"errors"

	"meshcore/internal/addr"
	"meshcore/internal/dedup"
	"meshcore/internal/frame"
	"meshcore/internal/payload"
	"meshcore/internal/telemetry"
)

// ErrNoRoute is returned when a DATA send had no usable route and had
// to fall back to originating a fresh RREQ; the caller is responsible
// for retrying once a route is installed.
var ErrNoRoute = errors.New("core: no route to destination, discovery initiated")

// SendData originates a fresh DATA packet from this node to dest,
// applying the forwarding decision tree at the originator. packetID==0
// is accepted as the "no ACK requested" sentinel.
func (c *Core) SendData(dest addr.NodeID, body []byte, packetID uint32) error {
	now := c.clock.NowMS()
	// Mark the packet as seen at its origin too, so copies relayed back to
	// this node are dropped instead of processed a second time.
	c.dataSeen.Put(dedup.DataSeenKey{SourceID: uint8(c.self), PacketID: packetID}, true, now)
	d := payload.Data{
		SourceID:      uint8(c.self),
		DestinationID: uint8(dest),
		PacketID:      packetID,
		TimestampMS:   int64(now),
		Path:          []uint8{uint8(c.self)},
		Body:          body,
	}
	return c.routeData(d, c.maxTTL)
}

func (c *Core) handleData(f frame.Frame, prev addr.NodeID, rssi int16) {
	d, err := payload.DecodeData(f.Payload)
	if err != nil {
		return
	}
	now := c.clock.NowMS()
	key := dedup.DataSeenKey{SourceID: d.SourceID, PacketID: d.PacketID}
	if c.dataSeen.Has(key, now) {
		return // no packet looping: processed at most once
	}
	c.dataSeen.Put(key, true, now)

	// annotate hop metric and path.
	d.HopMetrics = append(d.HopMetrics, payload.HopMetric{
		U: uint8(prev), V: uint8(c.self), RSSI: rssi, DelayMS: int64(now) - d.TimestampMS,
	})
	d.Path = append(d.Path, uint8(c.self))
	d.TimestampMS = int64(now)

	if addr.NodeID(d.DestinationID) == c.self {
		if c.bus != nil {
			c.bus.Publish(telemetry.Event{Type: telemetry.EventDataDelivered, NodeID: uint8(c.self), PacketID: d.PacketID, WallMS: c.clock.WallSeconds()})
		}
		if d.PacketID != 0 {
			c.sendAck(d)
		}
		return
	}
	// TTL==0 on a relayed frame still reaches routeData: a sink handoff
	// or a no-route RREQ-origination are not radio retransmissions, so
	// neither is gated on the incoming TTL (matching handleAck's
	// ordering). Only the radio-forward branches inside routeData check
	// against underflow.
	ttl := f.TTL
	if ttl > 0 {
		ttl--
	}
	_ = c.routeData(d, ttl)
}

// routeData implements the forwarding tail: sink handoff/relay
// fallback, route-based unicast, or RREQ-on-miss.
func (c *Core) routeData(d payload.Data, ttl uint8) error {
	now := c.clock.NowMS()
	destID := addr.NodeID(d.DestinationID)

	if destID == c.sinkID {
		if c.sel.SinkUp() {
			raw := frame.Encode(frame.TypeData, c.selfHW(), addr.HWAddr{}, ttl, mustEncodeData(d))
			return c.sel.ToSink(raw)
		}
		if ttl == 0 {
			return nil
		}
		raw := frame.Encode(frame.TypeData, c.selfHW(), addr.Broadcast, ttl, mustEncodeData(d))
		return c.sel.Broadcast(raw)
	}

	if !c.routes.Has(destID, now) {
		c.InitiateRREQ(destID)
		return ErrNoRoute // drop; upper layer/retry re-triggers discovery
	}
	if ttl == 0 {
		return nil
	}
	e, _ := c.routes.Lookup(destID)
	nextHW, ok := c.table.HWAddrOf(e.NextHop)
	if !ok {
		return ErrNoRoute
	}
	raw := frame.Encode(frame.TypeData, c.selfHW(), nextHW, ttl, mustEncodeData(d))
	err := c.sel.Unicast(e.NextHop, raw)
	if err == nil && c.bus != nil {
		c.bus.Publish(telemetry.Event{Type: telemetry.EventDataForwarded, NodeID: uint8(c.self), Dest: uint8(destID), NextHop: uint8(e.NextHop), PacketID: d.PacketID, WallMS: c.clock.WallSeconds()})
	}
	return err
}

// sendAck constructs and sends the end-to-end ACK for a just-delivered
// DATA packet.
func (c *Core) sendAck(d payload.Data) {
	now := c.clock.NowMS()
	a := payload.Ack{
		PacketID:    d.PacketID,
		AckFrom:     uint8(c.self),
		Destination: uint8(c.sinkID),
		OrigSource:  d.SourceID,
		OrigDest:    d.DestinationID,
		SentTS:      d.TimestampMS,
		AckTS:       int64(now),
	}
	body, err := payload.EncodeAck(a)
	if err != nil {
		return
	}
	if c.sel.SinkUp() {
		raw := frame.Encode(frame.TypeACK, c.selfHW(), addr.HWAddr{}, c.maxTTL, body)
		_ = c.sel.ToSink(raw)
	} else {
		raw := frame.Encode(frame.TypeACK, c.selfHW(), addr.Broadcast, c.maxTTL, body)
		_ = c.sel.Broadcast(raw)
	}
	if c.bus != nil {
		c.bus.Publish(telemetry.Event{Type: telemetry.EventAckSent, NodeID: uint8(c.self), PacketID: d.PacketID, WallMS: int64(now)})
	}
}

func (c *Core) handleAck(f frame.Frame, _ addr.NodeID) {
	a, err := payload.DecodeAck(f.Payload)
	if err != nil {
		return
	}
	now := c.clock.NowMS()
	key := dedup.AckSeenKey{PacketID: a.PacketID, AckFrom: a.AckFrom}
	if c.ackSeen.Has(key, now) {
		return
	}
	c.ackSeen.Put(key, true, now)

	if addr.NodeID(a.Destination) == c.sinkID && c.sel.SinkUp() {
		body, err := payload.EncodeAck(a)
		if err != nil {
			return
		}
		raw := frame.Encode(frame.TypeACK, c.selfHW(), addr.HWAddr{}, f.TTL, body)
		if err := c.sel.ToSink(raw); err == nil && c.bus != nil {
			c.bus.Publish(telemetry.Event{Type: telemetry.EventAckRelayed, NodeID: uint8(c.self), PacketID: a.PacketID, WallMS: int64(now)})
		}
		return
	}
	if f.TTL == 0 {
		return
	}
	body, err := payload.EncodeAck(a)
	if err != nil {
		return
	}
	raw := frame.Encode(frame.TypeACK, c.selfHW(), addr.Broadcast, f.TTL-1, body)
	_ = c.sel.Broadcast(raw)
}

func mustEncodeData(d payload.Data) []byte {
	b, err := payload.EncodeData(d)
	if err != nil {
		return nil
	}
	return b
}
