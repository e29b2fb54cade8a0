// Package config loads the node's runtime configuration 
// from a YAML file, falling back to JSON if the file doesn't parse as
// YAML.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"meshcore/internal/addr"
)

// NodeConfig is the required configuration set.
type NodeConfig struct {
	HWAddrTable     []string `yaml:"hw_addr_table" json:"hw_addr_table"`
	SelfMAC         string   `yaml:"self_mac" json:"self_mac"`
	SinkID          uint8    `yaml:"sink_id" json:"sink_id"`
	SinkIP          string   `yaml:"sink_ip" json:"sink_ip"`
	SinkUDPPort     int      `yaml:"sink_udp_port" json:"sink_udp_port"`
	UpstreamSSID    string   `yaml:"upstream_ssid" json:"upstream_ssid"`
	UpstreamPSK     string   `yaml:"upstream_psk" json:"upstream_psk"`
	HelloIntervalMS uint32   `yaml:"hello_interval_ms" json:"hello_interval_ms"`
	RouteTimeoutMS  uint32   `yaml:"route_timeout_ms" json:"route_timeout_ms"`
	MaxTTL          uint8    `yaml:"max_ttl" json:"max_ttl"`

	// Host UDP-broadcast backing for the radio collaborator
	// (transport.UDPRadio), used when running on real hardware instead
	// of the in-process simulated medium.
	RadioBindPort      int         `yaml:"radio_bind_port" json:"radio_bind_port"`
	RadioBroadcastPort int         `yaml:"radio_broadcast_port" json:"radio_broadcast_port"`
	RadioBroadcastIP   string      `yaml:"radio_broadcast_ip" json:"radio_broadcast_ip"`
	RadioPeers         []RadioPeer `yaml:"radio_peers" json:"radio_peers"`
}

// RadioPeer maps a neighbor's mesh hardware address to the host IP it
// answers on, so UDPRadio.Unicast can target it directly instead of
// only ever broadcasting.
type RadioPeer struct {
	MAC string `yaml:"mac" json:"mac"`
	IP  string `yaml:"ip" json:"ip"`
}

// Load reads and parses a NodeConfig from path, trying YAML first and
// falling back to JSON.
func Load(path string) (NodeConfig, error) {
	var cfg NodeConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		if jsonErr := json.Unmarshal(b, &cfg); jsonErr != nil {
			return cfg, fmt.Errorf("config: parse %s as yaml or json: %w", path, err)
		}
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *NodeConfig) {
	if cfg.HelloIntervalMS == 0 {
		cfg.HelloIntervalMS = 2000
	}
	if cfg.RouteTimeoutMS == 0 {
		cfg.RouteTimeoutMS = 10_000
	}
	if cfg.MaxTTL == 0 {
		cfg.MaxTTL = 10
	}
	if cfg.SinkUDPPort == 0 {
		cfg.SinkUDPPort = 5000
	}
	if cfg.RadioBindPort == 0 {
		cfg.RadioBindPort = 5100
	}
	if cfg.RadioBroadcastPort == 0 {
		cfg.RadioBroadcastPort = 5100
	}
	if cfg.RadioBroadcastIP == "" {
		cfg.RadioBroadcastIP = "255.255.255.255"
	}
}

// BuildAddrTable parses the configured hardware address strings into an
// addr.Table, treating a HW-address parse failure or duplicate as the
// fatal config error.
func (cfg NodeConfig) BuildAddrTable() (*addr.Table, error) {
	addrs := make([]addr.HWAddr, 0, len(cfg.HWAddrTable))
	for _, s := range cfg.HWAddrTable {
		a, err := addr.ParseHWAddr(s)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		addrs = append(addrs, a)
	}
	return addr.NewTable(addrs, addr.NodeID(cfg.SinkID))
}
