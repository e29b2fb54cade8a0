// Package scenario loads and runs a multi-node simulation scenario
// driving several core.Core instances over a shared transport.Medium —
// the ambient test/demo harness the distilled spec leaves out, adapted
package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes a simulated topology and traffic pattern.
type Scenario struct {
	DurationSec          int     `yaml:"duration_sec" json:"duration_sec"`
	NodeCount            int     `yaml:"node_count" json:"node_count"`
	SinkID               uint8   `yaml:"sink_id" json:"sink_id"`
	Links                [][2]int `yaml:"links" json:"links"`
	UpstreamUpNodes      []int   `yaml:"upstream_up_nodes" json:"upstream_up_nodes"`
	TrafficPerMinPerNode float64 `yaml:"traffic_per_min_per_node" json:"traffic_per_min_per_node"`
	MetricsFile          string  `yaml:"metrics_file" json:"metrics_file"`
}

// Load reads a Scenario from path, trying YAML then JSON, matching the
// node config loader's fallback pattern.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		if jsonErr := json.Unmarshal(b, &sc); jsonErr != nil {
			return nil, fmt.Errorf("scenario: parse %s as yaml or json: %w", path, err)
		}
	}
	if sc.DurationSec == 0 {
		sc.DurationSec = 30
	}
	if sc.MetricsFile == "" {
		sc.MetricsFile = "metrics.json"
	}
	return &sc, nil
}
