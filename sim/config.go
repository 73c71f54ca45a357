package sim

import (
	"github.com/popgen-sim/infsites/sim/dist"
	"github.com/popgen-sim/infsites/sim/trace"
)

// PopulationConfig groups the initial population layout.
type PopulationConfig struct {
	SubPopSizes []int    `yaml:"subpop_sizes"` // individuals per subpopulation
	Regions     []Region `yaml:"regions"`      // one half-open coordinate range per chromosome
	InitialLoci int      `yaml:"initial_loci"` // initial slot capacity per chromosome (default 10)
}

// MutationConfig groups MutationPlacer parameters.
type MutationConfig struct {
	Rate    float64       `yaml:"rate"`              // per-site mutation probability
	Model   MutationModel `yaml:"model"`             // "strict" (default) or "relaxed"
	SubPops []int         `yaml:"subpops,omitempty"` // empty = all
}

// SelectionConfig groups FitnessEvaluator parameters. Disabled selection
// means neutral evolution: every individual keeps fitness 1.
type SelectionConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Mode         FitnessMode   `yaml:"mode"`         // "multiplicative" (default), "additive", "exponential"
	Distribution dist.DistSpec `yaml:"distribution"` // coefficient distribution
	SubPops      []int         `yaml:"subpops,omitempty"`
}

// RecombinationConfig groups TransmissionEngine parameters.
type RecombinationConfig struct {
	Rate    float64 `yaml:"rate"` // 0, 0.5, or a breakpoint rate in between
	SubPops []int   `yaml:"subpops,omitempty"`
}

// FixationConfig schedules FixationReverter.
type FixationConfig struct {
	Every int `yaml:"every"` // revert every N generations; 0 disables
}

// OutputConfig names the optional sinks and exports of a run. Empty paths
// disable the corresponding output.
type OutputConfig struct {
	Mutations     trace.FileConfig `yaml:"mutations"`
	NewMutants    trace.FileConfig `yaml:"new_mutants"`
	FixedSites    trace.FileConfig `yaml:"fixed_sites"`
	Metrics       string           `yaml:"metrics"`        // Prometheus textfile path
	SnapshotStore string           `yaml:"snapshot_store"` // "", "memory", or "sqlite"
	SnapshotPath  string           `yaml:"snapshot_path"`  // sqlite database path
	SnapshotEvery int              `yaml:"snapshot_every"` // 0 = final generation only
}

// SimConfig is the complete configuration of a simulation run.
type SimConfig struct {
	Seed          int64               `yaml:"seed"`
	Generations   int                 `yaml:"generations"`
	Replicates    int                 `yaml:"replicates"`  // default 1
	Parallelism   int                 `yaml:"parallelism"` // concurrent replicates; default 1
	Population    PopulationConfig    `yaml:"population"`
	Mutation      MutationConfig      `yaml:"mutation"`
	Selection     SelectionConfig     `yaml:"selection"`
	Recombination RecombinationConfig `yaml:"recombination"`
	Fixation      FixationConfig      `yaml:"fixation"`
	Output        OutputConfig        `yaml:"output"`
}

// DefaultSimConfig returns a small neutral single-chromosome setup.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Seed:        42,
		Generations: 100,
		Replicates:  1,
		Parallelism: 1,
		Population: PopulationConfig{
			SubPopSizes: []int{100},
			Regions:     []Region{{Begin: 1, End: 100001}},
			InitialLoci: slotGrowth,
		},
		Mutation: MutationConfig{Rate: 1e-5, Model: MutationModelStrict},
		Selection: SelectionConfig{
			Mode: FitnessMultiplicative,
			Distribution: dist.DistSpec{
				Type:   "constant",
				Params: map[string]float64{"s": 0.01},
			},
		},
		Fixation: FixationConfig{Every: 1},
	}
}
