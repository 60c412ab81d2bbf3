package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	SyncTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dirsync",
		Subsystem: "sync",
		Name:      "tasks_total",
		Help:      "Total number of sync tasks broken down by task type and final status.",
	}, []string{"type", "status"})

	SyncChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dirsync",
		Subsystem: "sync",
		Name:      "changes_total",
		Help:      "Total number of entity changes applied by sync tasks.",
	}, []string{"entity", "operation"})

	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dirsync",
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Duration distribution of sync tasks.",
		Buckets: []float64{
			0.05, 0.1, 0.2, 0.5,
			1, 2, 5, 10,
			30, 60, 120, 300,
		},
	}, []string{"type"})
)

// Push ships everything gathered so far to a Pushgateway under the given job
// name. Add merges with metrics pushed by other instances of the job instead
// of replacing them.
func Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).Add()
}
