package scenario

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadScenarioYAMLDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	body := `
node_count: 3
sink_id: 4
links: [[0,1],[1,2]]
upstream_up_nodes: [1]
`
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	sc, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 3, sc.NodeCount)
	assert.Equal(t, 30, sc.DurationSec)
	assert.Equal(t, "metrics.json", sc.MetricsFile)
}

func TestRunnerRunsAndStopsOnCancel(t *testing.T) {
	sc := &Scenario{
		NodeCount: 3, SinkID: 4,
		Links:           [][2]int{{0, 1}, {1, 2}},
		UpstreamUpNodes: []int{1},
		MetricsFile:     filepath.Join(t.TempDir(), "metrics.json"),
	}
	r, err := NewRunner(sc, nil)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, r.Run(ctx))
	assert.NoError(t, r.Flush())

	b, err := os.ReadFile(sc.MetricsFile)
	assert.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestRunnerSendDataAndSetUpstreamRejectUnknownNode(t *testing.T) {
	sc := &Scenario{
		NodeCount: 2, SinkID: 4,
		Links:       [][2]int{{0, 1}},
		MetricsFile: filepath.Join(t.TempDir(), "metrics.json"),
	}
	r, err := NewRunner(sc, nil)
	assert.NoError(t, err)

	assert.NoError(t, r.SendData(0, 4, []byte("hi"), 1))
	assert.Error(t, r.SendData(9, 4, []byte("hi"), 1))

	assert.NoError(t, r.SetUpstream(1, true))
	assert.True(t, r.nodes[1].sink.up)
	assert.Error(t, r.SetUpstream(9, true))
}
