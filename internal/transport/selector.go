package transport

import "meshcore/internal/addr"

// Selector centralizes the radio-vs-UDP egress decision so core's
// control and data-plane handlers don't each reimplement the
// sink-up/radio-fallback logic inline.
type Selector struct {
	Radio  Radio
	Sink   SinkTransport
	SinkID addr.NodeID
	Table  *addr.Table
}

// SinkUp reports whether the sink uplink is currently usable. Callers
// branch on this before choosing ToSink vs. Broadcast/Unicast.
func (s *Selector) SinkUp() bool {
	return s.Sink != nil && s.Sink.IsUp()
}

// ToSink hands raw directly to the sink uplink.
func (s *Selector) ToSink(raw []byte) error {
	if !s.SinkUp() {
		return ErrUpstreamDown
	}
	return s.Sink.Send(raw)
}

// Broadcast always goes to radio broadcast.
func (s *Selector) Broadcast(raw []byte) error {
	return s.Radio.Broadcast(raw)
}

// Unicast resolves dst's hardware address from Table and sends raw to
// it over radio.
func (s *Selector) Unicast(dst addr.NodeID, raw []byte) error {
	hw, ok := s.Table.HWAddrOf(dst)
	if !ok {
		return ErrPeerRegistrationFailed
	}
	return s.Radio.Unicast(hw, raw)
}
