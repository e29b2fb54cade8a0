package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"meshcore/internal/addr"
)

func TestSimRadioDeliversToNeighbor(t *testing.T) {
	m := NewMedium()
	a := addr.HWAddr{0, 0, 0, 0, 0, 0}
	b := addr.HWAddr{0, 0, 0, 0, 0, 1}
	m.Link(a, b)

	ra := m.NewRadio(a)
	rb := m.NewRadio(b)

	var mu sync.Mutex
	var got []byte
	done := make(chan struct{})
	rb.SetReceiveHandler(func(raw []byte, src addr.HWAddr, rssi int16) {
		mu.Lock()
		got = raw
		mu.Unlock()
		close(done)
	})

	err := ra.Broadcast([]byte("hello"))
	assert.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	mu.Lock()
	assert.Equal(t, []byte("hello"), got)
	mu.Unlock()
}

func TestSimRadioUnicastUnreachablePeer(t *testing.T) {
	m := NewMedium()
	a := addr.HWAddr{0, 0, 0, 0, 0, 0}
	c := addr.HWAddr{0, 0, 0, 0, 0, 2}
	ra := m.NewRadio(a)
	m.NewRadio(c) // registered but not linked to a

	err := ra.Unicast(c, []byte("x"))
	assert.ErrorIs(t, err, ErrPeerRegistrationFailed)
}

type fakeSink struct {
	up  bool
	out [][]byte
}

func (f *fakeSink) Send(raw []byte) error {
	if !f.up {
		return ErrUpstreamDown
	}
	f.out = append(f.out, raw)
	return nil
}
func (f *fakeSink) TryRecv() ([]byte, bool) { return nil, false }
func (f *fakeSink) IsUp() bool              { return f.up }

func TestSelectorRoutesToSinkWhenUp(t *testing.T) {
	hw0, _ := addr.ParseHWAddr("AA:AA:AA:AA:AA:00")
	hw1, _ := addr.ParseHWAddr("AA:AA:AA:AA:AA:01")
	tbl, _ := addr.NewTable([]addr.HWAddr{hw0, hw1}, 4)

	m := NewMedium()
	radio := m.NewRadio(hw0)
	sink := &fakeSink{up: true}

	sel := &Selector{Radio: radio, Sink: sink, SinkID: 4, Table: tbl}
	assert.True(t, sel.SinkUp())
	err := sel.ToSink([]byte("data"))
	assert.NoError(t, err)
	assert.Len(t, sink.out, 1)
}

func TestSelectorFallsBackToRadioWhenSinkDown(t *testing.T) {
	hw0, _ := addr.ParseHWAddr("AA:AA:AA:AA:AA:00")
	hw1, _ := addr.ParseHWAddr("AA:AA:AA:AA:AA:01")
	tbl, _ := addr.NewTable([]addr.HWAddr{hw0, hw1}, 4)

	m := NewMedium()
	m.Link(hw0, hw1)
	radio := m.NewRadio(hw0)
	m.NewRadio(hw1)
	sink := &fakeSink{up: false}

	sel := &Selector{Radio: radio, Sink: sink, SinkID: 4, Table: tbl}
	assert.False(t, sel.SinkUp())
	err := sel.Unicast(1, []byte("data"))
	assert.NoError(t, err)
}

func TestSelectorUnicastUnknownDestFails(t *testing.T) {
	hw0, _ := addr.ParseHWAddr("AA:AA:AA:AA:AA:00")
	tbl, _ := addr.NewTable([]addr.HWAddr{hw0}, 4)

	m := NewMedium()
	radio := m.NewRadio(hw0)
	sel := &Selector{Radio: radio, Sink: &fakeSink{up: false}, SinkID: 4, Table: tbl}

	err := sel.Unicast(9, []byte("data"))
	assert.ErrorIs(t, err, ErrPeerRegistrationFailed)
}
