package transport

import (
	"errors"
	"net"
	"sync"

	"meshcore/internal/addr"
)

// ErrUpstreamDown is returned when a send was attempted on the
// sink-bound UDP link while it was down.
var ErrUpstreamDown = errors.New("transport: upstream link down")

// SinkTransport is the collaborator interface for the
// always-UDP path to the sink.
type SinkTransport interface {
	Send(raw []byte) error
	TryRecv() ([]byte, bool)
	IsUp() bool
}

// SinkUDP is the real sink uplink: a UDP socket dialed to the
// configured sink IP/port. Whether it is "up" is driven externally by
// SetUp, reflecting the boolean upstream-link-available signal the core
// treats as an opaque external collaborator; the core never
// touches Wi-Fi association itself.
type SinkUDP struct {
	mu   sync.Mutex
	conn *net.UDPConn
	up   bool
	rxCh chan []byte
}

// NewSinkUDP dials (without sending) the configured sink address. The
// link starts down; call SetUp(true) once the external upstream
// collaborator reports association.
func NewSinkUDP(sinkIP string, sinkPort int) (*SinkUDP, error) {
	raddr := &net.UDPAddr{IP: net.ParseIP(sinkIP), Port: sinkPort}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	s := &SinkUDP{conn: conn, rxCh: make(chan []byte, 64)}
	go s.readLoop()
	return s, nil
}

func (s *SinkUDP) readLoop() {
	buf := make([]byte, 2048)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			return
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case s.rxCh <- cp:
		default:
		}
	}
}

// SetUp flips the upstream-link-available flag, as reported by the
// external Wi-Fi collaborator.
func (s *SinkUDP) SetUp(up bool) {
	s.mu.Lock()
	s.up = up
	s.mu.Unlock()
}

func (s *SinkUDP) IsUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.up
}

// Send writes raw to the sink. Fails fast with ErrUpstreamDown if the
// link is not currently marked up (callers are expected to fall back
// to radio on failure).
func (s *SinkUDP) Send(raw []byte) error {
	if !s.IsUp() {
		return ErrUpstreamDown
	}
	_, err := s.conn.Write(raw)
	if err != nil {
		s.SetUp(false)
		return err
	}
	return nil
}

// TryRecv returns the next queued datagram, if any, without blocking.
func (s *SinkUDP) TryRecv() ([]byte, bool) {
	select {
	case b := <-s.rxCh:
		return b, true
	default:
		return nil, false
	}
}

// Close releases the underlying socket.
func (s *SinkUDP) Close() error { return s.conn.Close() }

// UDPRadio reproduces the original_source reference's approach to
// running the "radio" transport over a host's UDP broadcast socket
// instead of bare ESP-NOW silicon — the same 14-byte header is sent as
// a UDP broadcast datagram on a fixed port, matching
// aodv_only_rpi_metrics.py's struct.pack('!B6s6sB', ...) framing over
// SO_BROADCAST. This is a supplemented feature: the distilled spec only
// describes the radio collaborator's interface, not this concrete host
// backing for it.
type UDPRadio struct {
	conn       *net.UDPConn
	broadcast  *net.UDPAddr
	selfHW     addr.HWAddr
	peerHWByIP map[string]addr.HWAddr
	mu         sync.Mutex
	handler    ReceiveFunc
}

// NewUDPRadio opens a UDP socket on port for link-local broadcast radio
// emulation. Note: enabling the SO_BROADCAST socket option is
// platform-specific and left to deployment configuration (e.g. a
// capability-granted wrapper); this constructor assumes it is already
// permitted on the interface in use.
func NewUDPRadio(self addr.HWAddr, bindPort, broadcastPort int, broadcastIP string) (*UDPRadio, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: bindPort})
	if err != nil {
		return nil, err
	}
	r := &UDPRadio{
		conn:       conn,
		broadcast:  &net.UDPAddr{IP: net.ParseIP(broadcastIP), Port: broadcastPort},
		selfHW:     self,
		peerHWByIP: make(map[string]addr.HWAddr),
	}
	go r.readLoop()
	return r, nil
}

func (r *UDPRadio) readLoop() {
	buf := make([]byte, 2048)
	for {
		n, raddr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		r.mu.Lock()
		hw, known := r.peerHWByIP[raddr.IP.String()]
		handler := r.handler
		r.mu.Unlock()
		if handler == nil {
			continue
		}
		if !known {
			// The 14-byte header carries the sender's hw address at
			// offset 1; the radio layer does not decode it itself
			// (that is the frame codec's job), so an unknown peer is
			// reported with the zero hw address and the higher layer
			// fills it in from the decoded frame.
			handler(cp, addr.HWAddr{}, 0)
			continue
		}
		handler(cp, hw, 0)
	}
}

// RegisterPeer records which hardware address lives at a given host, so
// unicast sends can be routed to the right socket address.
func (r *UDPRadio) RegisterPeer(hw addr.HWAddr, ip string, port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peerHWByIP[ip] = hw
}

func (r *UDPRadio) SetReceiveHandler(fn ReceiveFunc) {
	r.mu.Lock()
	r.handler = fn
	r.mu.Unlock()
}

// Broadcast sends raw to the configured broadcast address/port.
func (r *UDPRadio) Broadcast(raw []byte) error {
	_, err := r.conn.WriteToUDP(raw, r.broadcast)
	return err
}

// Unicast is not directly addressable over a broadcast socket without a
// peer registry; ErrPeerRegistrationFailed is returned for unregistered
// destinations, matching the PeerRegistrationFailed error policy.
func (r *UDPRadio) Unicast(dst addr.HWAddr, raw []byte) error {
	r.mu.Lock()
	var target *net.UDPAddr
	for ip, hw := range r.peerHWByIP {
		if hw == dst {
			target = &net.UDPAddr{IP: net.ParseIP(ip), Port: r.broadcast.Port}
			break
		}
	}
	r.mu.Unlock()
	if target == nil {
		return ErrPeerRegistrationFailed
	}
	_, err := r.conn.WriteToUDP(raw, target)
	return err
}

// Close releases the underlying socket.
func (r *UDPRadio) Close() error { return r.conn.Close() }
