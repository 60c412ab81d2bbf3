package handlers

import (
	"github.com/iota-uz/dirsync/modules/directory/services"
	"github.com/iota-uz/dirsync/pkg/eventbus"
	"github.com/iota-uz/dirsync/pkg/metrics"
)

// RegisterSyncMetricsHandlers wires task completion events into the
// prometheus collectors.
func RegisterSyncMetricsHandlers(bus eventbus.EventBus) {
	bus.Subscribe(func(e *services.SyncCompletedEvent) {
		taskType := string(e.Task.Type)
		metrics.SyncTasks.WithLabelValues(taskType, string(e.Task.Status)).Inc()
		metrics.SyncDuration.WithLabelValues(taskType).Observe(e.Task.Duration.Seconds())
		for _, c := range e.Changes {
			metrics.SyncChanges.WithLabelValues(string(c.Entity), string(c.Op)).Inc()
		}
	})
}
