package scenario

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"meshcore/internal/addr"
	"meshcore/internal/core"
	"meshcore/internal/metrics"
	"meshcore/internal/telemetry"
	"meshcore/internal/transport"
)

// tickPeriod is how often each simulated node's event loop wakes up to
// drain ingress and service the tick scheduler.
const tickPeriod = 20 * time.Millisecond

type simNode struct {
	id   addr.NodeID
	core *core.Core
	sink *simSink
}

// simSink is a fakeSink-like SinkTransport that can be flipped up/down
// by the scenario's upstream-link schedule.
type simSink struct {
	up bool
}

func (s *simSink) Send([]byte) error {
	if !s.up {
		return transport.ErrUpstreamDown
	}
	return nil
}
func (s *simSink) TryRecv() ([]byte, bool) { return nil, false }
func (s *simSink) IsUp() bool              { return s.up }

// Runner owns a whole simulated mesh: N core.Core instances wired over a
// shared transport.Medium, a telemetry bus, and a metrics collector.
type Runner struct {
	sc     *Scenario
	nodes  []*simNode
	bus    *telemetry.Bus
	coll   *metrics.Collector
	logger *log.Logger
}

// NewRunner builds a Runner from a loaded Scenario.
func NewRunner(sc *Scenario, logger *log.Logger) (*Runner, error) {
	hws := make([]addr.HWAddr, sc.NodeCount)
	for i := 0; i < sc.NodeCount; i++ {
		hws[i] = addr.HWAddr{0xAA, 0, 0, 0, 0, byte(i)}
	}
	tbl, err := addr.NewTable(hws, addr.NodeID(sc.SinkID))
	if err != nil {
		return nil, err
	}

	medium := transport.NewMedium()
	for _, l := range sc.Links {
		medium.Link(hws[l[0]], hws[l[1]])
	}
	upSet := make(map[int]bool, len(sc.UpstreamUpNodes))
	for _, u := range sc.UpstreamUpNodes {
		upSet[u] = true
	}

	bus := telemetry.New(logger)
	coll := metrics.NewCollector()
	clock := transport.NewSystemClock()

	nodes := make([]*simNode, sc.NodeCount)
	for i := 0; i < sc.NodeCount; i++ {
		radio := medium.NewRadio(hws[i])
		sink := &simSink{up: upSet[i]}
		c := core.New(core.Config{
			Self: addr.NodeID(i), Table: tbl, Radio: radio, Sink: sink,
			Clock: clock, Bus: bus, Logger: logger,
		})
		nodes[i] = &simNode{id: addr.NodeID(i), core: c, sink: sink}
	}

	return &Runner{sc: sc, nodes: nodes, bus: bus, coll: coll, logger: logger}, nil
}

// Run drives every node's tick loop, a random traffic generator, and the
// metrics collector until ctx is cancelled, supervised by an errgroup
// bound to ctx so any goroutine's error tears down the whole run.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	metricsCh := r.bus.Subscribe()
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-metricsCh:
				r.coll.Consume(ev)
			}
		}
	})

	for _, n := range r.nodes {
		n := n
		g.Go(func() error {
			ticker := time.NewTicker(tickPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					n.core.DrainIngress()
					n.core.Tick()
				}
			}
		})
	}

	g.Go(func() error {
		r.generateTraffic(gctx)
		return nil
	})

	return g.Wait()
}

// generateTraffic emits Poisson-ish DATA traffic from random nodes to
// the sink, at the rate configured in the scenario, using a Poisson
// arrival process.
func (r *Runner) generateTraffic(ctx context.Context) {
	if r.sc.TrafficPerMinPerNode <= 0 || len(r.nodes) == 0 {
		<-ctx.Done()
		return
	}
	lambdaPerSec := r.sc.TrafficPerMinPerNode * float64(len(r.nodes)) / 60.0
	rng := rand.New(rand.NewSource(1))
	var packetID uint32
	for {
		u := rng.Float64()
		if u <= 0 {
			u = 1e-9
		}
		waitSec := -math.Log(u) / lambdaPerSec
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(waitSec * float64(time.Second))):
		}
		packetID++
		src := r.nodes[rng.Intn(len(r.nodes))]
		src.core.SendData(addr.NodeID(r.sc.SinkID), []byte("sim-traffic"), packetID)
	}
}

// Flush writes the accumulated metrics to the scenario's configured
// file.
func (r *Runner) Flush() error {
	return r.coll.Flush(r.sc.MetricsFile)
}

// SendData originates a DATA packet from nodeID to dest, satisfying
// apiserver.Controller for operator-driven traffic injection.
func (r *Runner) SendData(nodeID, dest uint8, body []byte, packetID uint32) error {
	for _, n := range r.nodes {
		if n.id == addr.NodeID(nodeID) {
			return n.core.SendData(addr.NodeID(dest), body, packetID)
		}
	}
	return fmt.Errorf("scenario: unknown node %d", nodeID)
}

// SetUpstream flips nodeID's simulated upstream link, satisfying
// apiserver.Controller for operator-driven fault injection.
func (r *Runner) SetUpstream(nodeID uint8, up bool) error {
	for _, n := range r.nodes {
		if n.id == addr.NodeID(nodeID) {
			n.sink.up = up
			return nil
		}
	}
	return fmt.Errorf("scenario: unknown node %d", nodeID)
}

// Bus exposes the telemetry bus for a monitoring layer (internal/apiserver)
// to subscribe to.
func (r *Runner) Bus() *telemetry.Bus { return r.bus }
