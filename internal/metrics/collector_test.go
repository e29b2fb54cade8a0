package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"meshcore/internal/telemetry"
)

func TestConsumeCountsByType(t *testing.T) {
	c := NewCollector()
	c.Consume(telemetry.Event{Type: telemetry.EventDataDelivered})
	c.Consume(telemetry.Event{Type: telemetry.EventDataDelivered})
	c.Consume(telemetry.Event{Type: telemetry.EventAckSent})

	assert.Equal(t, uint64(2), c.TotalDataDelivered)
	assert.Equal(t, uint64(1), c.TotalAckSent)
}

func TestFlushWritesJSON(t *testing.T) {
	c := NewCollector()
	c.Consume(telemetry.Event{Type: telemetry.EventRREQSent})

	path := filepath.Join(t.TempDir(), "metrics.json")
	assert.NoError(t, c.Flush(path))

	b, err := os.ReadFile(path)
	assert.NoError(t, err)
	var out Counters
	assert.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, uint64(1), out.TotalRREQSent)
}
