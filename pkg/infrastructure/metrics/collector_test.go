package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_Counter(t *testing.T) {
	c := NewPrometheusCollector()

	c.IncrementCounter("requests_total")
	c.IncrementCounter("requests_total")
	c.IncrementCounter("classifications_total", "intent", "row_count")

	families, err := c.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["requests_total"])
	assert.True(t, names["classifications_total"])
}

func TestPrometheusCollector_TimerRecordsHistogram(t *testing.T) {
	c := NewPrometheusCollector()

	timer := c.StartTimer("pipeline_duration_seconds")
	seconds := timer.Stop()
	assert.GreaterOrEqual(t, seconds, 0.0)

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "pipeline_duration_seconds", families[0].GetName())
}

func TestPrometheusCollector_IndependentRegistries(t *testing.T) {
	// Two collectors may register the same metric name without panicking;
	// each owns its registry.
	a := NewPrometheusCollector()
	b := NewPrometheusCollector()
	a.IncrementCounter("requests_total")
	b.IncrementCounter("requests_total")
}

func TestNoOpCollector(t *testing.T) {
	c := NewNoOpCollector()
	c.IncrementCounter("x")
	c.RecordHistogram("y", 1.5)
	c.RecordGauge("z", 2.5)
	if got := c.StartTimer("t").Stop(); got < 0 {
		t.Errorf("Stop() = %v, want non-negative", got)
	}
}
