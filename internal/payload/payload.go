// Package payload encodes the handful of fields the core's contract
// requires to be present and mutable inside the otherwise-opaque
// DATA/ACK payload: source_id, destination_id, packet_id, the
// accumulated hop path, per-hop metrics, and the originating timestamp.
//
// The hardware reference firmware parsed JSON to reach these fields; this
// core instead uses a compact binary encoding (msgpack), per the
// recommendation in the design notes.
package payload

import "github.com/vmihailenco/msgpack/v5"

// HopMetric is one (u, v) hop annotation appended as a DATA frame
// traverses a node: u -> v at the given RSSI, with the measured
// forwarding delay in milliseconds.
type HopMetric struct {
	U       uint8 `msgpack:"u"`
	V       uint8 `msgpack:"v"`
	RSSI    int16 `msgpack:"rssi"`
	DelayMS int64 `msgpack:"delay_ms"`
}

// Data is the mutable contract of a DATA frame's payload.
type Data struct {
	SourceID      uint8       `msgpack:"source_id"`
	DestinationID uint8       `msgpack:"destination_id"`
	PacketID      uint32      `msgpack:"packet_id"`
	TimestampMS   int64       `msgpack:"timestamp_ms"`
	Path          []uint8     `msgpack:"path"`
	HopMetrics    []HopMetric `msgpack:"hop_metrics"`
	Body          []byte      `msgpack:"body"`
}

// EncodeData serialises a Data payload to bytes.
func EncodeData(d Data) ([]byte, error) {
	return msgpack.Marshal(d)
}

// DecodeData parses bytes produced by EncodeData.
func DecodeData(b []byte) (Data, error) {
	var d Data
	err := msgpack.Unmarshal(b, &d)
	return d, err
}

// Ack is the payload of an end-to-end ACK relayed back to the sink.
type Ack struct {
	PacketID      uint32 `msgpack:"packet_id"`
	AckFrom       uint8  `msgpack:"ack_from"`
	Destination   uint8  `msgpack:"destination"`
	OrigSource    uint8  `msgpack:"orig_source"`
	OrigDest      uint8  `msgpack:"orig_destination"`
	SentTS        int64  `msgpack:"sent_ts"`
	AckTS         int64  `msgpack:"ack_ts"`
}

// EncodeAck serialises an Ack payload to bytes.
func EncodeAck(a Ack) ([]byte, error) {
	return msgpack.Marshal(a)
}

// DecodeAck parses bytes produced by EncodeAck.
func DecodeAck(b []byte) (Ack, error) {
	var a Ack
	err := msgpack.Unmarshal(b, &a)
	return a, err
}
