package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitorResourcesPublishesSamples(t *testing.T) {
	bus := New(nil)
	events := bus.Subscribe()
	done := make(chan struct{})

	bus.MonitorResources(5*time.Millisecond, done)
	defer close(done)

	select {
	case ev := <-events:
		assert.Equal(t, EventResourceSample, ev.Type)
		assert.NotEmpty(t, ev.Detail)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for a resource sample")
	}
}
