// ABOUTME: Prometheus metrics for sync operations
// ABOUTME: Counts pushes, pulls, and per-event pull outcomes
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Collector registers and records sync counters.
type Collector struct {
	pushes     *prometheus.CounterVec
	pulls      *prometheus.CounterVec
	pullEvents *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calsync_push_total",
			Help: "Push operations by outcome",
		}, []string{"outcome"}),
		pulls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calsync_pull_total",
			Help: "Pull operations by outcome",
		}, []string{"outcome"}),
		pullEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calsync_pull_events_total",
			Help: "Events processed during pulls by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(c.pushes, c.pulls, c.pullEvents)
	return c
}

func (c *Collector) RecordPush(outcome string) {
	c.pushes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPull(outcome string) {
	c.pulls.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordPullEvents(created, updated, failed int) {
	c.pullEvents.WithLabelValues("created").Add(float64(created))
	c.pullEvents.WithLabelValues("updated").Add(float64(updated))
	c.pullEvents.WithLabelValues("failed").Add(float64(failed))
}
