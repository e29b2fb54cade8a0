// Package addr implements the bijection between a small-integer node id
// and its 48-bit mesh hardware address.
package addr

import (
	"encoding/hex"
	"fmt"
)

// HWAddr is a 48-bit hardware address, stored big-endian (as printed:
// AA:BB:CC:DD:EE:FF).
type HWAddr [6]byte

// Broadcast is the all-ones hardware address used for radio broadcast.
var Broadcast = HWAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

func (h HWAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", h[0], h[1], h[2], h[3], h[4], h[5])
}

// ParseHWAddr parses a hex string such as "AABBCCDDEEFF" or
// "AA:BB:CC:DD:EE:FF" into a HWAddr.
func ParseHWAddr(s string) (HWAddr, error) {
	clean := make([]byte, 0, 12)
	for i := 0; i < len(s); i++ {
		if s[i] == ':' || s[i] == '-' {
			continue
		}
		clean = append(clean, s[i])
	}
	var h HWAddr
	b, err := hex.DecodeString(string(clean))
	if err != nil {
		return h, fmt.Errorf("addr: parse %q: %w", s, err)
	}
	if len(b) != 6 {
		return h, fmt.Errorf("addr: %q is not a 48-bit address", s)
	}
	copy(h[:], b)
	return h, nil
}

// NodeID is a small integer in [0, N); SinkID is a reserved member of
// this space with no mesh hardware address.
type NodeID uint8

// Table is the static ordered hw-address sequence for the mesh, plus the
// reserved sink id. It is built once at boot and never mutated.
type Table struct {
	addrs  []HWAddr
	sinkID NodeID
}

// NewTable builds a Table from an ordered address list and the reserved
// sink id. It returns ConfigError-flavoured errors (see spec's error
// table) if addresses are not unique or the sink id collides with a mesh
// slot.
func NewTable(addrs []HWAddr, sinkID NodeID) (*Table, error) {
	seen := make(map[HWAddr]bool, len(addrs))
	for _, a := range addrs {
		if seen[a] {
			return nil, fmt.Errorf("addr: duplicate hardware address %s in table", a)
		}
		seen[a] = true
	}
	if int(sinkID) < len(addrs) {
		return nil, fmt.Errorf("addr: sink id %d collides with a mesh address slot", sinkID)
	}
	return &Table{addrs: append([]HWAddr(nil), addrs...), sinkID: sinkID}, nil
}

// N is the number of mesh (non-sink) node slots.
func (t *Table) N() int { return len(t.addrs) }

// SinkID returns the reserved sink id.
func (t *Table) SinkID() NodeID { return t.sinkID }

// HWAddrOf returns the hardware address for a mesh node id.
func (t *Table) HWAddrOf(id NodeID) (HWAddr, bool) {
	if int(id) >= len(t.addrs) {
		return HWAddr{}, false
	}
	return t.addrs[id], true
}

// IDOf is the inverse of HWAddrOf.
func (t *Table) IDOf(a HWAddr) (NodeID, bool) {
	for i, x := range t.addrs {
		if x == a {
			return NodeID(i), true
		}
	}
	return 0, false
}

// SelfID finds this process's own node id by matching the local radio
// MAC against the table. Returns ConfigError if no match — fatal at boot
// per the core's error policy.
func (t *Table) SelfID(localMAC HWAddr) (NodeID, error) {
	id, ok := t.IDOf(localMAC)
	if !ok {
		return 0, fmt.Errorf("addr: local mac %s not found in hw address table: %w", localMAC, ErrConfigError)
	}
	return id, nil
}

// ErrConfigError is returned when the local MAC is absent from the
// configured address table, the one fatal-at-boot condition.
var ErrConfigError = fmt.Errorf("addr: config error")
