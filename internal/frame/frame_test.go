package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"meshcore/internal/addr"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := addr.HWAddr{0xAA, 0, 0, 0, 0, 1}
	dst := addr.HWAddr{0xBB, 0, 0, 0, 0, 2}
	raw := Encode(TypeData, src, dst, 9, []byte("hi"))
	assert.Len(t, raw, HeaderLen+2)

	f, err := Decode(raw)
	assert.NoError(t, err)
	assert.Equal(t, TypeData, f.Type)
	assert.Equal(t, src, f.SrcMAC)
	assert.Equal(t, dst, f.DstMAC)
	assert.Equal(t, uint8(9), f.TTL)
	assert.Equal(t, []byte("hi"), f.Payload)
}

func TestDecodeExactHeaderLenEmptyPayload(t *testing.T) {
	raw := Encode(TypeHello, addr.HWAddr{}, addr.Broadcast, 10, nil)
	assert.Len(t, raw, HeaderLen)
	f, err := Decode(raw)
	assert.NoError(t, err)
	assert.Empty(t, f.Payload)
}

func TestDecodeTooShortRejected(t *testing.T) {
	_, err := Decode(make([]byte, HeaderLen-1))
	assert.ErrorIs(t, err, ErrTooShort)
}
