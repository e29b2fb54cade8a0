package core

import (
	"github.com/vmihailenco/msgpack/v5"

	"meshcore/internal/addr"
	"meshcore/internal/dedup"
	"meshcore/internal/frame"
	"meshcore/internal/telemetry"
)

// Wire payloads for the four control messages. Only DATA/ACK fields
// are bound to an opaque cross-layer contract; control payloads are
// free-form, so these reuse the same compact encoding for consistency
// rather than inventing a second format.
type helloPayload struct {
	NodeID uint8  `msgpack:"n"`
	Seq    uint32 `msgpack:"s"`
}

type rreqPayload struct {
	SourceID uint8  `msgpack:"src"`
	RREQID   uint32 `msgpack:"id"`
	DestID   uint8  `msgpack:"dst"`
}

type rrepPayload struct {
	Requester uint8  `msgpack:"req"`
	Dest      uint8  `msgpack:"dst"`
	RREQID    uint32 `msgpack:"id"`
	DestSeq   uint32 `msgpack:"seq"`
	HopCount  uint8  `msgpack:"hc"`
}

type rerrPayload struct {
	UnreachableNode uint8 `msgpack:"u"`
}

// emitHello broadcasts {node_id, seq_num=local_seq++}, and mirrors it
// to the sink for telemetry (non-routing) when upstream is up.
func (c *Core) emitHello(now uint32) {
	seq := c.nextLocalSeq()
	body, _ := msgpack.Marshal(helloPayload{NodeID: uint8(c.self), Seq: seq})
	raw := frame.Encode(frame.TypeHello, c.selfHW(), addr.Broadcast, 1, body)
	_ = c.sel.Broadcast(raw)
	if c.sel.SinkUp() {
		_ = c.sel.ToSink(raw)
	}
}

// handleHello installs/refreshes a direct-neighbor route on receipt of a
// HELLO: unconditionally *offered*, the route table's replacement rule
// governs acceptance.
func (c *Core) handleHello(f frame.Frame, prev addr.NodeID) {
	var p helloPayload
	if msgpack.Unmarshal(f.Payload, &p) != nil {
		return
	}
	now := c.clock.NowMS()
	c.routes.Update(addr.NodeID(p.NodeID), prev, 1, p.Seq, now)
}

// InitiateRREQ originates a route discovery for destination d.
// Multiple concurrent RREQs for the same destination are permitted by
// design; dedup at receivers suppresses storms.
func (c *Core) InitiateRREQ(d addr.NodeID) {
	rreqID := c.nextLocalSeq()
	body, _ := msgpack.Marshal(rreqPayload{SourceID: uint8(c.self), RREQID: rreqID, DestID: uint8(d)})
	raw := frame.Encode(frame.TypeRREQ, c.selfHW(), addr.Broadcast, c.maxTTL, body)
	_ = c.sel.Broadcast(raw)
	if c.bus != nil {
		c.bus.Publish(telemetry.Event{Type: telemetry.EventRREQSent, NodeID: uint8(c.self), Dest: uint8(d), PacketID: rreqID, WallMS: c.clock.WallSeconds()})
	}
}

func (c *Core) handleRREQ(f frame.Frame, prev addr.NodeID) {
	var p rreqPayload
	if msgpack.Unmarshal(f.Payload, &p) != nil {
		return
	}
	now := c.clock.NowMS()
	key := dedup.ReversePathKey{SourceID: p.SourceID, RREQID: p.RREQID}
	if c.reversePath.Has(key, now) {
		return // step 1: already seen, drop
	}
	c.reversePath.Put(key, prev, now) // step 2

	// step 3: offer reverse route to the originator (known hop-count=1
	// simplification, preserved as-is).
	c.routes.Update(addr.NodeID(p.SourceID), prev, 1, p.RREQID, now)

	if addr.NodeID(p.DestID) == c.self {
		// step 4: reply, dest_seq=rreq_id, hop_count_to_dest=0. Stop.
		c.sendRREP(p.SourceID, p.DestID, p.RREQID, p.RREQID, 0)
		return
	}
	if c.routes.Has(addr.NodeID(p.DestID), now) {
		// step 5: reply using the known route. Stop.
		e, _ := c.routes.Lookup(addr.NodeID(p.DestID))
		c.sendRREP(p.SourceID, p.DestID, p.RREQID, e.Seq, e.HopCount)
		return
	}
	if f.TTL > 0 {
		// step 6: rebroadcast verbatim payload with ttl-1, src rewritten
		// to this forwarder.
		raw := frame.Encode(frame.TypeRREQ, c.selfHW(), addr.Broadcast, f.TTL-1, f.Payload)
		_ = c.sel.Broadcast(raw)
	}
	// step 7 (ttl==0): drop.
}

// sendRREP unicasts an RREP along the reverse path recorded for
// (requester, rreqID).
func (c *Core) sendRREP(requester, dest uint8, rreqID, destSeq uint32, hopCount uint8) {
	now := c.clock.NowMS()
	v, ok := c.reversePath.Get(dedup.ReversePathKey{SourceID: requester, RREQID: rreqID}, now)
	if !ok {
		return
	}
	prevHop := v.(addr.NodeID)
	prevHW, ok := c.table.HWAddrOf(prevHop)
	if !ok {
		return
	}
	body, _ := msgpack.Marshal(rrepPayload{Requester: requester, Dest: dest, RREQID: rreqID, DestSeq: destSeq, HopCount: hopCount})
	raw := frame.Encode(frame.TypeRREP, c.selfHW(), prevHW, c.maxTTL, body)
	_ = c.sel.Unicast(prevHop, raw)
	if c.bus != nil {
		c.bus.Publish(telemetry.Event{Type: telemetry.EventRREPSent, NodeID: uint8(c.self), Dest: uint8(dest), WallMS: c.clock.WallSeconds()})
	}
}

func (c *Core) handleRREP(f frame.Frame, prev addr.NodeID) {
	var p rrepPayload
	if msgpack.Unmarshal(f.Payload, &p) != nil {
		return
	}
	now := c.clock.NowMS()
	// step 1: install route, hop_count+1 (preserved under-count along
	// the path — not incremented further below).
	c.routes.Update(addr.NodeID(p.Dest), prev, p.HopCount+1, p.DestSeq, now)

	if addr.NodeID(p.Requester) == c.self {
		return // step 2: terminal; stuck DATA retried by upper layer
	}
	// step 3: forward verbatim along the reverse path.
	v, ok := c.reversePath.Get(dedup.ReversePathKey{SourceID: p.Requester, RREQID: p.RREQID}, now)
	if !ok || f.TTL == 0 {
		return
	}
	nextHop := v.(addr.NodeID)
	nextHW, ok := c.table.HWAddrOf(nextHop)
	if !ok {
		return
	}
	raw := frame.Encode(frame.TypeRREP, c.selfHW(), nextHW, f.TTL-1, f.Payload)
	_ = c.sel.Unicast(nextHop, raw)
}

func (c *Core) handleRERR(f frame.Frame, _ addr.NodeID) {
	var p rerrPayload
	if msgpack.Unmarshal(f.Payload, &p) != nil {
		return
	}
	c.routes.Invalidate(addr.NodeID(p.UnreachableNode), c.clock.NowMS())
	// RERR is broadcast but not rebroadcast by this core (one-hop notice
	// only).
}
