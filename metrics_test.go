package taskcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsObserveAccumulates(t *testing.T) {
	m := newMetrics()
	m.observe(10)
	m.observe(20)
	m.observe(30)

	require.EqualValues(t, 3, m.TasksRun())
	snap := m.Snapshot()
	require.Equal(t, 3, snap.Count)
	require.InDelta(t, 20, snap.Mean, 0.01)
	require.Equal(t, 30.0, snap.Max)
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.observe(10)
	})
	require.Equal(t, LatencySnapshot{}, m.Snapshot())
	require.EqualValues(t, 0, m.TasksRun())
}
