// Command meshnode runs a single mesh node's event loop on real
// hardware transports (UDP-broadcast radio emulation + sink uplink),
// logging and shutdown handling follow the project's batch-runner conventions.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meshcore/internal/addr"
	"meshcore/internal/config"
	"meshcore/internal/core"
	"meshcore/internal/telemetry"
	"meshcore/internal/transport"
)

func main() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Fatalf("failed to create logs directory: %v", err)
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFile, err := os.OpenFile("logs/node_"+timestamp+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer logFile.Close()

	multiWriter := io.MultiWriter(os.Stdout, logFile)
	logger := log.New(multiWriter, "", log.Ltime|log.Lmicroseconds)

	cfgPath := flag.String("config", "node.yaml", "YAML or JSON node configuration")
	selfMAC := flag.String("self-mac", "", "override self_mac from the config file")
	flag.Parse()

	logger.Println("loading node configuration...")
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	if *selfMAC != "" {
		cfg.SelfMAC = *selfMAC
	}

	tbl, err := cfg.BuildAddrTable()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	localHW, err := addr.ParseHWAddr(cfg.SelfMAC)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	selfID, err := tbl.SelfID(localHW)
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	radio, err := transport.NewUDPRadio(localHW, cfg.RadioBindPort, cfg.RadioBroadcastPort, cfg.RadioBroadcastIP)
	if err != nil {
		logger.Fatalf("radio: %v", err)
	}
	defer radio.Close()

	for _, peer := range cfg.RadioPeers {
		peerHW, err := addr.ParseHWAddr(peer.MAC)
		if err != nil {
			logger.Fatalf("config error: radio_peers: %v", err)
		}
		radio.RegisterPeer(peerHW, peer.IP, cfg.RadioBroadcastPort)
	}

	sink, err := transport.NewSinkUDP(cfg.SinkIP, cfg.SinkUDPPort)
	if err != nil {
		logger.Fatalf("sink uplink: %v", err)
	}
	defer sink.Close()
	// The upstream Wi-Fi association itself is an external collaborator
	// ; this process assumes it is already associated and
	// marks the link up immediately. A real deployment would instead
	// drive SetUp from the platform's own Wi-Fi status callback.
	sink.SetUp(true)

	bus := telemetry.New(logger)
	cl := transport.NewSystemClock()

	c := core.New(core.Config{
		Self: selfID, Table: tbl, Radio: radio, Sink: sink,
		Clock: cl, Bus: bus, Logger: logger,
		HelloIntervalMS: cfg.HelloIntervalMS, RouteTimeoutMS: cfg.RouteTimeoutMS, MaxTTL: cfg.MaxTTL,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	logger.Printf("node %d online, mac=%s, sink=%s:%d", selfID, localHW, cfg.SinkIP, cfg.SinkUDPPort)
	for {
		select {
		case s := <-sigCh:
			logger.Printf("received signal %v: shutting down", s)
			return
		case <-ticker.C:
			c.DrainIngress()
			c.Tick()
		}
	}
}
