// Tracks run-wide counters of the simulation operators such as:
// mutation events by outcome, newly seen mutants, fixed loci, slot growth.

package sim

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/popgen-sim/infsites/sim/trace"
)

// Metrics aggregates counters about the simulation for final reporting.
// Counters are atomic so replicates running in parallel may share one
// Metrics value.
type Metrics struct {
	Mutations   [4]atomic.Int64 // indexed by trace.EventCode
	NewMutants  atomic.Int64    // loci whose coefficients were first resolved
	FixedLoci   atomic.Int64    // loci removed by fixation reversion
	Generations atomic.Int64    // completed generations, summed over replicates
	SlotGrowths atomic.Int64    // AddLoci calls issued by operators
	Rebuilds    atomic.Int64    // occupancy set rebuilds
}

// NewMetrics returns zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordMutation(code trace.EventCode) {
	if m != nil {
		m.Mutations[code].Add(1)
	}
}

func (m *Metrics) recordNewMutants(n int) {
	if m != nil {
		m.NewMutants.Add(int64(n))
	}
}

func (m *Metrics) recordFixed(n int) {
	if m != nil {
		m.FixedLoci.Add(int64(n))
	}
}

func (m *Metrics) recordGeneration() {
	if m != nil {
		m.Generations.Add(1)
	}
}

func (m *Metrics) recordSlotGrowth() {
	if m != nil {
		m.SlotGrowths.Add(1)
	}
}

func (m *Metrics) recordRebuild() {
	if m != nil {
		m.Rebuilds.Add(1)
	}
}

// MetricsSnapshot is a plain copy of Metrics for reporting.
type MetricsSnapshot struct {
	Mutations   [4]int64
	NewMutants  int64
	FixedLoci   int64
	Generations int64
	SlotGrowths int64
	Rebuilds    int64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var s MetricsSnapshot
	for i := range m.Mutations {
		s.Mutations[i] = m.Mutations[i].Load()
	}
	s.NewMutants = m.NewMutants.Load()
	s.FixedLoci = m.FixedLoci.Load()
	s.Generations = m.Generations.Load()
	s.SlotGrowths = m.SlotGrowths.Load()
	s.Rebuilds = m.Rebuilds.Load()
	return s
}

var (
	mutationDesc = prometheus.NewDesc("infsites_mutation_events_total",
		"Accepted mutation events by outcome.", []string{"event"}, nil)
	newMutantDesc = prometheus.NewDesc("infsites_new_mutants_total",
		"Loci whose selection coefficients were first resolved.", nil, nil)
	fixedDesc = prometheus.NewDesc("infsites_fixed_loci_total",
		"Loci removed after fixing in the whole population.", nil, nil)
	generationDesc = prometheus.NewDesc("infsites_generations_total",
		"Completed generations summed over replicates.", nil, nil)
	growthDesc = prometheus.NewDesc("infsites_slot_growths_total",
		"Population-wide haplotype slot growth events.", nil, nil)
	rebuildDesc = prometheus.NewDesc("infsites_occupancy_rebuilds_total",
		"Full rebuilds of the mutation occupancy set.", nil, nil)
)

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- mutationDesc
	ch <- newMutantDesc
	ch <- fixedDesc
	ch <- generationDesc
	ch <- growthDesc
	ch <- rebuildDesc
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	s := m.Snapshot()
	for code, n := range s.Mutations {
		ch <- prometheus.MustNewConstMetric(mutationDesc, prometheus.CounterValue, float64(n),
			trace.EventCode(code).String())
	}
	ch <- prometheus.MustNewConstMetric(newMutantDesc, prometheus.CounterValue, float64(s.NewMutants))
	ch <- prometheus.MustNewConstMetric(fixedDesc, prometheus.CounterValue, float64(s.FixedLoci))
	ch <- prometheus.MustNewConstMetric(generationDesc, prometheus.CounterValue, float64(s.Generations))
	ch <- prometheus.MustNewConstMetric(growthDesc, prometheus.CounterValue, float64(s.SlotGrowths))
	ch <- prometheus.MustNewConstMetric(rebuildDesc, prometheus.CounterValue, float64(s.Rebuilds))
}

// WriteTextfile exports the counters in the Prometheus text format, e.g. for
// a node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string, labels map[string]string) error {
	reg := prometheus.NewRegistry()
	if err := prometheus.WrapRegistererWith(labels, reg).Register(m); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}

// Labels returns the constant labels of a metrics export for this run.
func (k SimulationKey) Labels() map[string]string {
	return map[string]string{"seed": strconv.FormatInt(int64(k), 10)}
}
