package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/popgen-sim/infsites/sim/dist"
	"github.com/popgen-sim/infsites/sim/store"
	"github.com/popgen-sim/infsites/sim/trace"
)

// Sinks are the event outputs of one replicate. A nil sink disables that
// output.
type Sinks struct {
	Mutations  trace.Sink
	NewMutants trace.Sink
	FixedSites trace.Sink
}

// SimulatorOptions carries collaborators shared with the caller.
type SimulatorOptions struct {
	Sinks   Sinks
	Metrics *Metrics    // may be nil
	Store   store.Store // may be nil; snapshots are skipped
	RunID   string      // snapshot key; required when Store is set
	// Source overrides the configured coefficient distribution. It is
	// called at most once per locus per replicate.
	Source CoefficientSource
}

// Simulator runs the generation loop of one replicate:
// mutate, evaluate fitness, mate, then periodically revert fixed sites.
// Thread-safety: NOT thread-safe. Replicates each own a Simulator.
type Simulator struct {
	cfg       SimConfig
	replicate int
	pop       *Population

	mutator  *MutationPlacer
	fitness  *FitnessEvaluator // nil when selection is disabled
	mating   *Mating
	reverter *FixationReverter

	store   store.Store
	runID   string
	metrics *Metrics

	fixed int // loci removed by fixation reversion
}

// NewSimulator builds the population and operators of one replicate. cfg
// must already be validated. Every operator draws from rng.
func NewSimulator(cfg SimConfig, replicate int, rng *Stream, opts SimulatorOptions) (*Simulator, error) {
	regions, err := NewRegionTable(cfg.Population.Regions)
	if err != nil {
		return nil, err
	}
	numLoci := make([]int, regions.NumChrom())
	for ch := range numLoci {
		numLoci[ch] = cfg.Population.InitialLoci
	}
	pop, err := NewPopulation(cfg.Population.SubPopSizes, numLoci)
	if err != nil {
		return nil, err
	}

	mutator, err := NewMutationPlacer(MutationPlacerConfig{
		Rate:    cfg.Mutation.Rate,
		Model:   cfg.Mutation.Model,
		SubPops: cfg.Mutation.SubPops,
	}, regions, rng, opts.Sinks.Mutations, opts.Metrics)
	if err != nil {
		return nil, err
	}

	var fitness *FitnessEvaluator
	if cfg.Selection.Enabled || opts.Source != nil {
		var spec *dist.DistSpec
		if opts.Source == nil {
			spec = &cfg.Selection.Distribution
		}
		factory, err := NewSelectionCoefficientFactory(spec, opts.Source, rng)
		if err != nil {
			return nil, err
		}
		mode := cfg.Selection.Mode
		if mode == "" {
			mode = FitnessMultiplicative
		}
		fitness, err = NewFitnessEvaluator(mode, factory, cfg.Selection.SubPops, opts.Sinks.NewMutants, opts.Metrics)
		if err != nil {
			return nil, err
		}
	}

	transmitter, err := NewTransmissionEngine(cfg.Recombination.Rate, regions, cfg.Recombination.SubPops, rng, opts.Metrics)
	if err != nil {
		return nil, err
	}

	if opts.Store != nil && opts.RunID == "" {
		return nil, fmt.Errorf("%w: snapshots require a run ID", ErrConfig)
	}

	return &Simulator{
		cfg:       cfg,
		replicate: replicate,
		pop:       pop,
		mutator:   mutator,
		fitness:   fitness,
		mating:    NewMating(transmitter, rng),
		reverter:  NewFixationReverter(opts.Sinks.FixedSites, opts.Metrics),
		store:     opts.Store,
		runID:     opts.RunID,
		metrics:   opts.Metrics,
	}, nil
}

// Population returns the current generation.
func (s *Simulator) Population() *Population { return s.pop }

// FixedCount returns the number of loci removed by fixation reversion so far.
func (s *Simulator) FixedCount() int { return s.fixed }

// Step advances the population by one generation.
func (s *Simulator) Step(ctx context.Context) error {
	gen := s.pop.Generation()
	if err := s.mutator.Apply(s.pop); err != nil {
		return fmt.Errorf("generation %d: mutation: %w", gen, err)
	}
	if s.fitness != nil {
		if err := s.fitness.Apply(s.pop); err != nil {
			return fmt.Errorf("generation %d: fitness: %w", gen, err)
		}
	}
	offPop, err := s.mating.Apply(s.pop)
	if err != nil {
		return fmt.Errorf("generation %d: mating: %w", gen, err)
	}
	s.pop = offPop

	if every := s.cfg.Fixation.Every; every > 0 && (gen+1)%every == 0 {
		fixed, err := s.reverter.Apply(s.pop)
		if err != nil {
			return fmt.Errorf("generation %d: fixation: %w", gen, err)
		}
		if len(fixed) > 0 {
			logrus.Debugf("[replicate %d, gen %d] reverted %d fixed loci", s.replicate, gen, len(fixed))
		}
		s.fixed += len(fixed)
	}

	s.pop.SetGeneration(gen + 1)
	s.metrics.recordGeneration()

	if s.snapshotDue(gen + 1) {
		if err := s.SaveSnapshot(ctx); err != nil {
			return fmt.Errorf("generation %d: snapshot: %w", gen, err)
		}
	}
	return nil
}

func (s *Simulator) snapshotDue(gen int) bool {
	if s.store == nil {
		return false
	}
	if every := s.cfg.Output.SnapshotEvery; every > 0 && gen%every == 0 {
		return true
	}
	return gen == s.cfg.Generations
}

// Run executes the configured number of generations, stopping early when
// ctx is cancelled.
func (s *Simulator) Run(ctx context.Context) error {
	logrus.Infof("[replicate %d] starting %d generations", s.replicate, s.cfg.Generations)
	for s.pop.Generation() < s.cfg.Generations {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	logrus.Infof("[replicate %d] finished at generation %d", s.replicate, s.pop.Generation())
	return nil
}

// SaveSnapshot writes the current population to the snapshot store.
func (s *Simulator) SaveSnapshot(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.SaveSnapshot(ctx, SnapshotOf(s.pop, s.runID, s.replicate))
}

// SnapshotOf copies pop into a store snapshot.
func SnapshotOf(pop *Population, runID string, replicate int) store.Snapshot {
	numLoci := make([]int, pop.NumChrom())
	for ch := range numLoci {
		numLoci[ch] = pop.NumLoci(ch)
	}
	geno := make([]uint32, 0, pop.Size()*pop.Ploidy()*pop.TotNumLoci())
	fitness := make([]float64, pop.Size())
	for ind := 0; ind < pop.Size(); ind++ {
		for _, a := range pop.Genotype(ind) {
			geno = append(geno, uint32(a))
		}
		fitness[ind] = pop.Fitness(ind)
	}
	return store.Snapshot{
		SchemaVersion: store.CurrentSchemaVersion,
		CodecVersion:  store.CurrentCodecVersion,
		RunID:         runID,
		Replicate:     replicate,
		Generation:    pop.Generation(),
		Ploidy:        pop.Ploidy(),
		SubPopSizes:   pop.SubPopSizes(),
		NumLoci:       numLoci,
		Genotypes:     geno,
		Fitness:       fitness,
	}
}

// PopulationFromSnapshot rebuilds a population from a stored snapshot.
func PopulationFromSnapshot(snap store.Snapshot) (*Population, error) {
	if snap.Ploidy != 2 {
		return nil, fmt.Errorf("%w: snapshot ploidy %d, engine is diploid", ErrConfig, snap.Ploidy)
	}
	pop, err := NewPopulation(snap.SubPopSizes, snap.NumLoci)
	if err != nil {
		return nil, err
	}
	if len(snap.Genotypes) != len(pop.geno) || len(snap.Fitness) != pop.Size() {
		return nil, fmt.Errorf("%w: snapshot %s does not match its layout", ErrConfig, snap.Key())
	}
	for i, a := range snap.Genotypes {
		pop.geno[i] = Allele(a)
	}
	copy(pop.fitness, snap.Fitness)
	pop.gen = snap.Generation
	return pop, nil
}
