package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadYAMLWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	body := `
hw_addr_table:
  - "AA:AA:AA:AA:AA:00"
  - "AA:AA:AA:AA:AA:01"
self_mac: "AA:AA:AA:AA:AA:00"
sink_id: 4
sink_ip: "10.0.0.1"
`
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, uint32(2000), cfg.HelloIntervalMS)
	assert.Equal(t, uint32(10_000), cfg.RouteTimeoutMS)
	assert.Equal(t, uint8(10), cfg.MaxTTL)
	assert.Equal(t, 5000, cfg.SinkUDPPort)
	assert.Equal(t, 5100, cfg.RadioBindPort)
	assert.Equal(t, "255.255.255.255", cfg.RadioBroadcastIP)

	tbl, err := cfg.BuildAddrTable()
	assert.NoError(t, err)
	assert.Equal(t, 2, tbl.N())
}

func TestBuildAddrTableRejectsBadAddress(t *testing.T) {
	cfg := NodeConfig{HWAddrTable: []string{"not-a-mac"}, SinkID: 4}
	_, err := cfg.BuildAddrTable()
	assert.Error(t, err)
}
