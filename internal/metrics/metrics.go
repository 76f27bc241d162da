// Package metrics exposes Prometheus instrumentation for the routing engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	queriesCreated    prometheus.Counter
	assignmentsMade   prometheus.Counter
	completions       prometheus.Counter
	escalations       prometheus.Counter
	scoringFallbacks  prometheus.Counter
	assignmentLatency prometheus.Histogram
	cycleDuration     prometheus.Histogram
	queriesPending    prometheus.Gauge
}

// NewCollector registers the engine's metrics on the given registerer. Tests
// pass a fresh prometheus.NewRegistry to avoid cross-test registration
// collisions; main passes prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		queriesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "route_queries_created_total",
			Help: "Total number of support queries submitted",
		}),
		assignmentsMade: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "route_assignments_created_total",
			Help: "Total number of assignments committed",
		}),
		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "route_assignments_completed_total",
			Help: "Total number of assignments completed",
		}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "route_escalations_total",
			Help: "Total number of query or assignment escalations",
		}),
		scoringFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "route_scoring_fallbacks_total",
			Help: "Total number of scorer failures recovered by the heuristic",
		}),
		assignmentLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "route_assignment_latency_seconds",
			Help:    "Time from assignment to completion in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "route_cycle_duration_seconds",
			Help:    "Duration of one assignment cycle in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		queriesPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "route_queries_pending",
			Help: "Current number of pending queries",
		}),
	}

	reg.MustRegister(
		c.queriesCreated,
		c.assignmentsMade,
		c.completions,
		c.escalations,
		c.scoringFallbacks,
		c.assignmentLatency,
		c.cycleDuration,
		c.queriesPending,
	)
	return c
}

func (c *Collector) RecordQueryCreated() {
	c.queriesCreated.Inc()
}

func (c *Collector) RecordAssignment() {
	c.assignmentsMade.Inc()
}

func (c *Collector) RecordCompletion(latencySeconds float64) {
	c.completions.Inc()
	c.assignmentLatency.Observe(latencySeconds)
}

func (c *Collector) RecordEscalation() {
	c.escalations.Inc()
}

func (c *Collector) RecordScoringFallback() {
	c.scoringFallbacks.Inc()
}

func (c *Collector) ObserveCycleDuration(seconds float64) {
	c.cycleDuration.Observe(seconds)
}

func (c *Collector) SetPendingQueries(n int) {
	c.queriesPending.Set(float64(n))
}
