package transport

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"meshcore/internal/addr"
)

// ErrPeerRegistrationFailed is returned when the radio driver rejected
// a new unicast peer (here: the destination is unreachable on the
// simulated medium).
var ErrPeerRegistrationFailed = errors.New("transport: peer registration failed")

// ReceiveFunc is the callback invoked with a freshly received frame, the
// hardware address of the immediate sender, and its RSSI.
type ReceiveFunc func(raw []byte, src addr.HWAddr, rssi int16)

// Radio is the short-range broadcast/unicast collaborator interface.
type Radio interface {
	Broadcast(raw []byte) error
	Unicast(dst addr.HWAddr, raw []byte) error
	SetReceiveHandler(fn ReceiveFunc)
}

// CSMA parameters modelling a contention-based shared channel
// BroadcastMessageCSMA: initial jitter, probabilistic transmit, binary
// exponential backoff, and a simulated channel-busy hold after send.
const (
	pTransmit        = 0.25
	ccaSlotMS        = 1
	maxBackoffSlots  = 5
	channelBusyHold  = 2 * time.Millisecond
	initialJitterMax = 3 * time.Millisecond
)

// Medium is a shared simulated radio medium connecting a set of
// SimRadio peers over explicit topology links (rather than a
// distance/range model, for deterministic scenario tests). It has no
// collision model: every linked neighbor receives every frame.
type Medium struct {
	mu        sync.Mutex
	peers     map[addr.HWAddr]*SimRadio
	neighbors map[addr.HWAddr]map[addr.HWAddr]bool
	busy      map[addr.HWAddr]bool
	rng       *rand.Rand
}

// NewMedium builds an empty shared medium.
func NewMedium() *Medium {
	return &Medium{
		peers:     make(map[addr.HWAddr]*SimRadio),
		neighbors: make(map[addr.HWAddr]map[addr.HWAddr]bool),
		busy:      make(map[addr.HWAddr]bool),
		rng:       rand.New(rand.NewSource(int64(uuid.New().ClockSequence()) + time.Now().UnixNano())),
	}
}

// Link adds a bidirectional neighbor relation between two hardware
// addresses (they can hear each other).
func (m *Medium) Link(a, b addr.HWAddr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.neighbors[a] == nil {
		m.neighbors[a] = make(map[addr.HWAddr]bool)
	}
	if m.neighbors[b] == nil {
		m.neighbors[b] = make(map[addr.HWAddr]bool)
	}
	m.neighbors[a][b] = true
	m.neighbors[b][a] = true
}

// NewRadio registers a new SimRadio for the given hardware address.
func (m *Medium) NewRadio(self addr.HWAddr) *SimRadio {
	r := &SimRadio{self: self, medium: m}
	m.mu.Lock()
	m.peers[self] = r
	m.mu.Unlock()
	return r
}

func (m *Medium) neighborsOf(self addr.HWAddr) []addr.HWAddr {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]addr.HWAddr, 0, len(m.neighbors[self]))
	for n := range m.neighbors[self] {
		out = append(out, n)
	}
	return out
}

func (m *Medium) isNeighbor(a, b addr.HWAddr) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.neighbors[a][b]
}

// csmaAcquire performs jittered CCA + probabilistic-transmit +
// binary-exponential-backoff dance before granting the channel. It
// never fails outright; it only delays.
func (m *Medium) csmaAcquire(self addr.HWAddr) {
	if d := m.rng.Intn(int(initialJitterMax.Milliseconds()) + 1); d > 0 {
		time.Sleep(time.Duration(d) * time.Millisecond)
	}
	backoff := 1
	for attempt := 0; attempt < maxBackoffSlots; attempt++ {
		m.mu.Lock()
		busy := m.busy[self]
		m.mu.Unlock()
		if !busy && m.rng.Float64() < pTransmit {
			break
		}
		time.Sleep(time.Duration(backoff) * ccaSlotMS * time.Millisecond)
		if backoff < 1<<maxBackoffSlots {
			backoff *= 2
		}
	}
	m.mu.Lock()
	m.busy[self] = true
	m.mu.Unlock()
	go func() {
		time.Sleep(channelBusyHold)
		m.mu.Lock()
		m.busy[self] = false
		m.mu.Unlock()
	}()
}

func (m *Medium) deliver(to addr.HWAddr, raw []byte, from addr.HWAddr) {
	m.mu.Lock()
	r := m.peers[to]
	m.mu.Unlock()
	if r == nil {
		return
	}
	r.receive(raw, from)
}

// SimRadio is one node's simulated radio interface onto a shared Medium.
type SimRadio struct {
	self    addr.HWAddr
	medium  *Medium
	handler ReceiveFunc
	rssi    int16
}

// SetReceiveHandler registers the callback invoked for every frame this
// radio hears.
func (r *SimRadio) SetReceiveHandler(fn ReceiveFunc) { r.handler = fn }

func (r *SimRadio) receive(raw []byte, from addr.HWAddr) {
	if r.handler != nil {
		r.handler(raw, from, r.rssi)
	}
}

// Broadcast sends raw to every neighbor after the CSMA/CA dance.
func (r *SimRadio) Broadcast(raw []byte) error {
	r.medium.csmaAcquire(r.self)
	for _, n := range r.medium.neighborsOf(r.self) {
		r.medium.deliver(n, raw, r.self)
	}
	return nil
}

// Unicast sends raw to dst if it is a registered neighbor.
func (r *SimRadio) Unicast(dst addr.HWAddr, raw []byte) error {
	if dst == addr.Broadcast {
		return r.Broadcast(raw)
	}
	if !r.medium.isNeighbor(r.self, dst) {
		return ErrPeerRegistrationFailed
	}
	r.medium.csmaAcquire(r.self)
	r.medium.deliver(dst, raw, r.self)
	return nil
}
