package telemetry

import (
	"fmt"
	"runtime"
	"time"
)

// MonitorResources periodically publishes a goroutine/heap snapshot onto
// the bus as an EventResourceSample instead of printing straight to
// stdout, so the simulation's own monitoring plane can consume it.
// Stops when ctx-like done is closed.
func (b *Bus) MonitorResources(interval time.Duration, done <-chan struct{}) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)
				b.Publish(Event{
					Type: EventResourceSample,
					Detail: fmt.Sprintf("goroutines=%d heap_alloc_kb=%.2f heap_objects=%d",
						runtime.NumGoroutine(), float64(memStats.HeapAlloc)/1024, memStats.HeapObjects),
					WallMS: time.Now().UnixMilli(),
				})
			}
		}
	}()
}
