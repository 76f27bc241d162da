package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordQueryCreated()
	c.RecordQueryCreated()
	c.RecordAssignment()
	c.RecordCompletion(12.5)
	c.RecordEscalation()
	c.RecordScoringFallback()
	c.SetPendingQueries(7)

	require.Equal(t, 2.0, testutil.ToFloat64(c.queriesCreated))
	require.Equal(t, 1.0, testutil.ToFloat64(c.assignmentsMade))
	require.Equal(t, 1.0, testutil.ToFloat64(c.completions))
	require.Equal(t, 1.0, testutil.ToFloat64(c.escalations))
	require.Equal(t, 1.0, testutil.ToFloat64(c.scoringFallbacks))
	require.Equal(t, 7.0, testutil.ToFloat64(c.queriesPending))

	require.Equal(t, 1, testutil.CollectAndCount(c.assignmentLatency, "route_assignment_latency_seconds"))
}

func TestCollectorRegistersOncePerRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { NewCollector(reg) })
	require.Panics(t, func() { NewCollector(reg) })
}
