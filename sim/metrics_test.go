package sim

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popgen-sim/infsites/sim/trace"
)

func TestMetrics_NilSafeRecorders(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.recordMutation(trace.EventNew)
		m.recordNewMutants(3)
		m.recordFixed(1)
		m.recordGeneration()
		m.recordSlotGrowth()
		m.recordRebuild()
	})
}

func TestMetrics_Collector(t *testing.T) {
	// GIVEN some recorded events
	m := NewMetrics()
	m.recordMutation(trace.EventNew)
	m.recordMutation(trace.EventNew)
	m.recordMutation(trace.EventDropped)
	m.recordFixed(4)
	m.recordGeneration()

	// THEN every series is exported, one per event code
	assert.Equal(t, 4+5, testutil.CollectAndCount(m))
	assert.Equal(t, 4, testutil.CollectAndCount(m, "infsites_mutation_events_total"))

	expected := `
# HELP infsites_fixed_loci_total Loci removed after fixing in the whole population.
# TYPE infsites_fixed_loci_total counter
infsites_fixed_loci_total 4
`
	assert.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(expected), "infsites_fixed_loci_total"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.recordMutation(trace.EventRelocated)
	m.recordSlotGrowth()
	path := filepath.Join(t.TempDir(), "infsites.prom")

	require.NoError(t, m.WriteTextfile(path, NewSimulationKey(11).Labels()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `infsites_mutation_events_total{event="relocated",seed="11"} 1`)
	assert.Contains(t, string(data), `infsites_slot_growths_total{seed="11"} 1`)
}
