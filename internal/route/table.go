// Package route implements the per-destination route table: next hop,
// hop count, destination sequence number, and freshness timestamp, with
// the AODV-subset replacement rule implemented here.
package route

import (
	"meshcore/internal/addr"
	"meshcore/internal/telemetry"
)

// DefaultRouteTimeoutMS is the entry staleness window used when New is
// given timeoutMS==0.
const DefaultRouteTimeoutMS = 10_000

// Entry is one route table row.
type Entry struct {
	NextHop      addr.NodeID
	HasNextHop   bool
	HopCount     uint8
	Seq          uint32
	LastUpdateMS uint32
}

// Valid reports whether the entry is usable: seq != 0 and a next hop is
// set. Staleness (timeout) is handled separately by Cleanup/IsStale.
func (e Entry) Valid() bool { return e.Seq != 0 && e.HasNextHop }

// Table owns every destination's route entry for one node.
type Table struct {
	self      addr.NodeID
	entries   map[addr.NodeID]*Entry
	bus       *telemetry.Bus
	timeoutMS uint32
}

// New builds an empty Table for node self, publishing changes on bus
// (nil bus is allowed, e.g. in tests). timeoutMS==0 falls back to
// DefaultRouteTimeoutMS.
func New(self addr.NodeID, bus *telemetry.Bus, timeoutMS uint32) *Table {
	if timeoutMS == 0 {
		timeoutMS = DefaultRouteTimeoutMS
	}
	return &Table{self: self, entries: make(map[addr.NodeID]*Entry), bus: bus, timeoutMS: timeoutMS}
}

// Has reports whether d currently has a valid, unexpired entry.
func (t *Table) Has(d addr.NodeID, nowMS uint32) bool {
	e, ok := t.entries[d]
	if !ok {
		return false
	}
	if !e.Valid() {
		return false
	}
	if nowMS-e.LastUpdateMS > t.timeoutMS {
		return false
	}
	return true
}

// Lookup returns the current entry for d (may be invalid/stale; callers
// wanting a usable route should check Has first).
func (t *Table) Lookup(d addr.NodeID) (Entry, bool) {
	e, ok := t.entries[d]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Update offers (nextHop, hopCount, seq) to destination d's entry,
// applying the replacement rule implemented here:
//  1. the entry is invalid, or
//  2. seq is newer, or
//  3. seq is equal and hopCount is shorter.
//
// Returns true if the update was accepted.
func (t *Table) Update(d addr.NodeID, nextHop addr.NodeID, hopCount uint8, seq uint32, nowMS uint32) bool {
	e, ok := t.entries[d]
	if !ok {
		e = &Entry{}
		t.entries[d] = e
	}
	accept := !e.Valid() || seq > e.Seq || (seq == e.Seq && hopCount < e.HopCount)
	if !accept {
		return false
	}
	e.NextHop = nextHop
	e.HasNextHop = true
	e.HopCount = hopCount
	e.Seq = seq
	e.LastUpdateMS = nowMS
	if t.bus != nil {
		t.bus.Publish(telemetry.Event{
			Type: telemetry.EventRouteInstalled, NodeID: uint8(t.self), Dest: uint8(d),
			NextHop: uint8(nextHop), HopCount: hopCount, WallMS: int64(nowMS),
		})
	}
	return true
}

// Invalidate zeroes out d's sequence number and next-hop flag so Valid()
// reports false, e.g. on RERR or forced invalidation.
func (t *Table) Invalidate(d addr.NodeID, nowMS uint32) {
	e, ok := t.entries[d]
	if !ok || !e.Valid() {
		return
	}
	e.Seq = 0
	e.HasNextHop = false
	if t.bus != nil {
		t.bus.Publish(telemetry.Event{
			Type: telemetry.EventRouteInvalidated, NodeID: uint8(t.self), Dest: uint8(d), WallMS: int64(nowMS),
		})
	}
}

// Cleanup invalidates every entry that has exceeded the table's
// configured timeout. Idempotent; safe to call on every tick.
func (t *Table) Cleanup(nowMS uint32) {
	for d, e := range t.entries {
		if e.Valid() && nowMS-e.LastUpdateMS > t.timeoutMS {
			t.Invalidate(d, nowMS)
		}
	}
}
