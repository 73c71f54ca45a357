package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/popgen-sim/infsites/sim/dist"
)

// LoadSimConfig reads a YAML configuration file. Fields absent from the
// file keep the values of DefaultSimConfig; unknown fields are rejected.
func LoadSimConfig(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading simulation config: %w", err)
	}
	cfg := DefaultSimConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing simulation config: %w", err)
	}
	return &cfg, nil
}

// YAML renders the configuration as YAML.
func (c SimConfig) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// ValidMutationModels is the set of recognized mutation model names.
var ValidMutationModels = map[MutationModel]bool{"": true, MutationModelStrict: true, MutationModelRelaxed: true}

// ValidSnapshotStores is the set of recognized snapshot backends.
var ValidSnapshotStores = map[string]bool{"": true, "memory": true, "sqlite": true}

// Validate checks names and parameter ranges. Every error wraps ErrConfig
// (or ErrLocusOverflow for unstorable regions).
func (c *SimConfig) Validate() error {
	if c.Generations < 0 {
		return fmt.Errorf("%w: generations must be non-negative, got %d", ErrConfig, c.Generations)
	}
	if c.Replicates < 1 {
		return fmt.Errorf("%w: replicates must be at least 1, got %d", ErrConfig, c.Replicates)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be at least 1, got %d", ErrConfig, c.Parallelism)
	}
	if len(c.Population.SubPopSizes) == 0 {
		return fmt.Errorf("%w: population.subpop_sizes must not be empty", ErrConfig)
	}
	for i, sz := range c.Population.SubPopSizes {
		if sz < 1 {
			return fmt.Errorf("%w: subpopulation %d must have at least one individual, got %d", ErrConfig, i, sz)
		}
	}
	if c.Population.InitialLoci < 1 {
		return fmt.Errorf("%w: population.initial_loci must be at least 1, got %d", ErrConfig, c.Population.InitialLoci)
	}
	if _, err := NewRegionTable(c.Population.Regions); err != nil {
		return err
	}
	if c.Mutation.Rate < 0 || c.Mutation.Rate > 1 {
		return fmt.Errorf("%w: mutation.rate must be in [0, 1], got %v", ErrConfig, c.Mutation.Rate)
	}
	if !ValidMutationModels[c.Mutation.Model] {
		return fmt.Errorf("%w: unknown mutation model %q", ErrConfig, c.Mutation.Model)
	}
	if c.Selection.Enabled {
		if c.Selection.Mode != "" && !ValidFitnessModes[c.Selection.Mode] {
			return fmt.Errorf("%w: unknown fitness mode %q", ErrConfig, c.Selection.Mode)
		}
		if _, err := dist.NewCoefficientSampler(c.Selection.Distribution); err != nil {
			return fmt.Errorf("%w: selection.distribution: %v", ErrConfig, err)
		}
	}
	if c.Recombination.Rate < 0 || c.Recombination.Rate > 0.5 {
		return fmt.Errorf("%w: recombination.rate must be in [0, 0.5], got %v", ErrConfig, c.Recombination.Rate)
	}
	if c.Fixation.Every < 0 {
		return fmt.Errorf("%w: fixation.every must be non-negative, got %d", ErrConfig, c.Fixation.Every)
	}
	if !ValidSnapshotStores[c.Output.SnapshotStore] {
		return fmt.Errorf("%w: unknown snapshot store %q", ErrConfig, c.Output.SnapshotStore)
	}
	if c.Output.SnapshotStore == "sqlite" && c.Output.SnapshotPath == "" {
		return fmt.Errorf("%w: sqlite snapshot store requires output.snapshot_path", ErrConfig)
	}
	if c.Output.SnapshotEvery < 0 {
		return fmt.Errorf("%w: output.snapshot_every must be non-negative, got %d", ErrConfig, c.Output.SnapshotEvery)
	}
	return nil
}
