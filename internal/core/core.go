// Package core owns the single-threaded event loop that ties together
// route table, dedup caches, sequence counters and the upstream-link
// flag into one Core value per node, and implements the tick scheduler
// and ingress demultiplexer.
package core

import (
	"log"

	"meshcore/internal/addr"
	"meshcore/internal/dedup"
	"meshcore/internal/frame"
	"meshcore/internal/route"
	"meshcore/internal/telemetry"
	"meshcore/internal/transport"
)

// Default tick intervals.
const (
	DefaultHelloIntervalMS  = 2000
	RouteCleanupIntervalMS  = 1000
	UpstreamProbeIntervalMS = 3000
	UpstreamRetryIntervalMS = 10_000
	DefaultMaxTTL           = 10
)

// Config bundles the compile/runtime configuration Core needs at
// construction.
type Config struct {
	Self            addr.NodeID
	Table           *addr.Table
	Radio           transport.Radio
	Sink            transport.SinkTransport
	Clock           transport.Clock
	Bus             *telemetry.Bus
	Logger          *log.Logger
	HelloIntervalMS uint32
	RouteTimeoutMS  uint32
	MaxTTL          uint8
}

// Core is the single owner of all mutable routing state for one node.
// Every method below except Run/Ingest is meant to be called only from
// the event loop goroutine.
type Core struct {
	self   addr.NodeID
	table  *addr.Table
	sinkID addr.NodeID

	radio transport.Radio
	sink  transport.SinkTransport
	sel   *transport.Selector
	clock transport.Clock
	bus   *telemetry.Bus
	log   *log.Logger

	routes      *route.Table
	reversePath *dedup.Cache
	dataSeen    *dedup.Cache
	ackSeen     *dedup.Cache

	localSeq      uint32
	packetCounter uint32

	helloIntervalMS uint32
	maxTTL          uint8

	lastHelloMS    uint32
	lastCleanupMS  uint32
	lastProbeMS    uint32
	lastRetryMS    uint32
	upstreamWasUp  bool

	ingress chan inboundFrame
}

type inboundFrame struct {
	raw  []byte
	src  addr.HWAddr
	rssi int16
}

// New builds a Core from cfg. Zero-value HelloIntervalMS/MaxTTL fall
// back to package defaults.
func New(cfg Config) *Core {
	if cfg.HelloIntervalMS == 0 {
		cfg.HelloIntervalMS = DefaultHelloIntervalMS
	}
	if cfg.MaxTTL == 0 {
		cfg.MaxTTL = DefaultMaxTTL
	}
	c := &Core{
		self:            cfg.Self,
		table:           cfg.Table,
		sinkID:          cfg.Table.SinkID(),
		radio:           cfg.Radio,
		sink:            cfg.Sink,
		clock:           cfg.Clock,
		bus:             cfg.Bus,
		log:             cfg.Logger,
		routes:          route.New(cfg.Self, cfg.Bus, cfg.RouteTimeoutMS),
		reversePath:     dedup.NewReversePath(),
		dataSeen:        dedup.NewDataSeen(),
		ackSeen:         dedup.NewAckSeen(),
		helloIntervalMS: cfg.HelloIntervalMS,
		maxTTL:          cfg.MaxTTL,
		ingress:         make(chan inboundFrame, 256),
	}
	c.sel = &transport.Selector{Radio: c.radio, Sink: c.sink, SinkID: c.sinkID, Table: c.table}
	if c.radio != nil {
		c.radio.SetReceiveHandler(func(raw []byte, src addr.HWAddr, rssi int16) {
			c.Ingest(raw, src, rssi)
		})
	}
	return c
}

// Ingest is the receive-callback entrypoint: it
// enqueues onto the single-producer/single-consumer channel drained by
// Tick/Run. Safe to call from any goroutine (radio driver ISR context on
// bare metal, or the SimRadio/UDPRadio's own goroutine here).
func (c *Core) Ingest(raw []byte, src addr.HWAddr, rssi int16) {
	select {
	case c.ingress <- inboundFrame{raw: raw, src: src, rssi: rssi}:
	default:
		if c.log != nil {
			c.log.Printf("core[%d]: ingress queue full, dropping frame", c.self)
		}
	}
}

// DrainIngress processes every currently queued inbound frame. It
// never blocks.
func (c *Core) DrainIngress() {
	for {
		select {
		case in := <-c.ingress:
			c.handleRaw(in.raw, in.src, in.rssi)
		default:
			return
		}
	}
}

func (c *Core) handleRaw(raw []byte, srcHW addr.HWAddr, rssi int16) {
	f, err := frame.Decode(raw)
	if err != nil {
		return // malformed frame: drop silently
	}
	// UDPRadio reports the zero address for a sender whose host IP isn't
	// yet in its peer registry; fall back to the frame's own SrcMAC
	// field, which the sender always fills in regardless of transport.
	if srcHW == (addr.HWAddr{}) {
		srcHW = f.SrcMAC
	}
	prev, ok := c.table.IDOf(srcHW)
	if !ok {
		return
	}
	switch f.Type {
	case frame.TypeHello:
		c.handleHello(f, prev)
	case frame.TypeRREQ:
		c.handleRREQ(f, prev)
	case frame.TypeRREP:
		c.handleRREP(f, prev)
	case frame.TypeRERR:
		c.handleRERR(f, prev)
	case frame.TypeData:
		c.handleData(f, prev, rssi)
	case frame.TypeACK:
		c.handleAck(f, prev)
	}
}

// Tick drives the scheduler: HELLO emission, route cleanup, and
// upstream link probing/retry. It is meant to be called frequently
// (e.g. every 10-50ms) by Run's loop; each sub-task self-paces against
// its own interval using the clock.
func (c *Core) Tick() {
	now := c.clock.NowMS()

	if now-c.lastHelloMS >= c.helloIntervalMS {
		c.emitHello(now)
		c.lastHelloMS = now
	}
	if now-c.lastCleanupMS >= RouteCleanupIntervalMS {
		c.routes.Cleanup(now)
		c.lastCleanupMS = now
	}
	if now-c.lastProbeMS >= UpstreamProbeIntervalMS {
		c.probeUpstream(now)
		c.lastProbeMS = now
	}
	if c.sink != nil && !c.sink.IsUp() && now-c.lastRetryMS >= UpstreamRetryIntervalMS {
		c.lastRetryMS = now
		// Upstream association retry itself is the external Wi-Fi
		// collaborator's job; the core only re-samples.
	}
}

func (c *Core) probeUpstream(now uint32) {
	if c.sink == nil {
		return
	}
	up := c.sink.IsUp()
	if up && !c.upstreamWasUp {
		if c.bus != nil {
			c.bus.Publish(telemetry.Event{Type: telemetry.EventUpstreamLinkUp, NodeID: uint8(c.self), WallMS: int64(now)})
		}
	} else if !up && c.upstreamWasUp {
		if c.bus != nil {
			c.bus.Publish(telemetry.Event{Type: telemetry.EventUpstreamLinkDown, NodeID: uint8(c.self), WallMS: int64(now)})
		}
	}
	c.upstreamWasUp = up
}

// Run drives DrainIngress+Tick in a loop until stop is closed. It is the
// hosted-OS analogue of the bare-metal cooperative loop described in
// on bare metal, DrainIngress/Tick are instead called
// directly from the platform's own scheduling loop.
func (c *Core) Run(stop <-chan struct{}, tickEvery func() <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-tickEvery():
			c.DrainIngress()
			c.Tick()
		}
	}
}

// nextLocalSeq increments and returns local_seq, used both as AODV
// source sequence and RREQ identifier.
func (c *Core) nextLocalSeq() uint32 {
	c.localSeq++
	return c.localSeq
}

// nextPacketID increments and returns the data packet_id counter.
func (c *Core) nextPacketID() uint32 {
	c.packetCounter++
	return c.packetCounter
}

func (c *Core) selfHW() addr.HWAddr {
	hw, _ := c.table.HWAddrOf(c.self)
	return hw
}
