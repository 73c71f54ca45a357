package sim

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/popgen-sim/infsites/sim/store"
	"github.com/popgen-sim/infsites/sim/trace"
)

// ReplicateOptions carries collaborators shared by all replicates of a run.
type ReplicateOptions struct {
	RunID   string
	Metrics *Metrics    // shared; counters are atomic
	Store   store.Store // shared; may be nil
	// Source must be safe for concurrent use when Parallelism > 1.
	Source CoefficientSource
	// NewSinks builds the sinks of one replicate. Defaults to FileSinks
	// from the output section of the config.
	NewSinks func(replicate int) (Sinks, func() error, error)
}

// ReplicateResult summarizes one finished replicate.
type ReplicateResult struct {
	Replicate   int
	Generation  int
	Size        int
	Segregating int // distinct loci still carried
	Fixed       int // loci removed by fixation reversion
	MeanFitness float64
}

// RunReplicates runs cfg.Replicates independent replicates, at most
// cfg.Parallelism at a time. Each replicate draws from its own stream of the
// run's PartitionedRNG, so results do not depend on scheduling.
func RunReplicates(ctx context.Context, cfg SimConfig, opts ReplicateOptions) ([]ReplicateResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	newSinks := opts.NewSinks
	if newSinks == nil {
		newSinks = func(replicate int) (Sinks, func() error, error) {
			return FileSinks(cfg.Output, replicate, cfg.Replicates)
		}
	}

	// streams are derived up front: PartitionedRNG is single-goroutine
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	streams := make([]*Stream, cfg.Replicates)
	for i := range streams {
		streams[i] = rng.ForSubsystem(SubsystemReplicate(i))
	}

	results := make([]ReplicateResult, cfg.Replicates)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallelism)
	for i := 0; i < cfg.Replicates; i++ {
		g.Go(func() (err error) {
			sinks, release, err := newSinks(i)
			if err != nil {
				return fmt.Errorf("replicate %d: %w", i, err)
			}
			defer func() {
				if rerr := release(); err == nil && rerr != nil {
					err = fmt.Errorf("replicate %d: %w", i, rerr)
				}
			}()
			s, err := NewSimulator(cfg, i, streams[i], SimulatorOptions{
				Sinks:   sinks,
				Metrics: opts.Metrics,
				Store:   opts.Store,
				RunID:   opts.RunID,
				Source:  opts.Source,
			})
			if err != nil {
				return fmt.Errorf("replicate %d: %w", i, err)
			}
			if err := s.Run(gctx); err != nil {
				return fmt.Errorf("replicate %d: %w", i, err)
			}
			results[i] = summarize(i, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func summarize(replicate int, s *Simulator) ReplicateResult {
	pop := s.Population()
	loci := make(map[Allele]struct{})
	pop.Alleles(func(a Allele) { loci[a] = struct{}{} })
	mean := 0.0
	for ind := 0; ind < pop.Size(); ind++ {
		mean += pop.Fitness(ind)
	}
	if pop.Size() > 0 {
		mean /= float64(pop.Size())
	}
	return ReplicateResult{
		Replicate:   replicate,
		Generation:  pop.Generation(),
		Size:        pop.Size(),
		Segregating: len(loci),
		Fixed:       s.FixedCount(),
		MeanFitness: mean,
	}
}

// FileSinks opens the configured event files of one replicate. With more
// than one replicate the replicate index is inserted before the extension,
// e.g. mutations.txt becomes mutations.rep2.txt. The returned function
// closes every opened file.
func FileSinks(out OutputConfig, replicate, replicates int) (Sinks, func() error, error) {
	var (
		sinks Sinks
		files []*trace.FileSink
	)
	release := func() error {
		var first error
		for _, f := range files {
			if err := f.Release(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	open := func(cfg trace.FileConfig) (trace.Sink, error) {
		if cfg.Path == "" {
			return nil, nil
		}
		if replicates > 1 {
			cfg.Path = ReplicatePath(cfg.Path, replicate)
		}
		f, err := trace.NewFileSink(cfg)
		if err != nil {
			return nil, err
		}
		logrus.Debugf("replicate %d writing %s", replicate, cfg.Path)
		files = append(files, f)
		return f, nil
	}
	var err error
	if sinks.Mutations, err = open(out.Mutations); err != nil {
		return Sinks{}, release, err
	}
	if sinks.NewMutants, err = open(out.NewMutants); err != nil {
		return Sinks{}, release, err
	}
	if sinks.FixedSites, err = open(out.FixedSites); err != nil {
		return Sinks{}, release, err
	}
	return sinks, release, nil
}

// ReplicatePath inserts ".rep<N>" before the extension of path.
func ReplicatePath(path string, replicate int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s.rep%d%s", strings.TrimSuffix(path, ext), replicate, ext)
}
