package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataRoundTrip(t *testing.T) {
	d := Data{
		SourceID: 0, DestinationID: 4, PacketID: 7, TimestampMS: 1234,
		Path:       []uint8{0, 1},
		HopMetrics: []HopMetric{{U: 0, V: 1, RSSI: -42, DelayMS: 3}},
		Body:       []byte("hello"),
	}
	b, err := EncodeData(d)
	assert.NoError(t, err)

	got, err := DecodeData(b)
	assert.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestAckRoundTrip(t *testing.T) {
	a := Ack{PacketID: 7, AckFrom: 1, Destination: 4, OrigSource: 0, OrigDest: 1, SentTS: 10, AckTS: 20}
	b, err := EncodeAck(a)
	assert.NoError(t, err)

	got, err := DecodeAck(b)
	assert.NoError(t, err)
	assert.Equal(t, a, got)
}
