package sim

import (
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/popgen-sim/infsites/sim/trace"
)

// FitnessMode selects how per-locus selection coefficients combine.
type FitnessMode string

const (
	// FitnessMultiplicative: Π(1 − s·h) over heterozygous loci × Π(1 − s) over homozygous loci.
	FitnessMultiplicative FitnessMode = "multiplicative"
	// FitnessAdditive: max(0, 1 − Σ), Σ summing s·h (heterozygous) and s (homozygous).
	FitnessAdditive FitnessMode = "additive"
	// FitnessExponential: exp(−Σ) with Σ as for additive.
	FitnessExponential FitnessMode = "exponential"
)

// ValidFitnessModes is the set of recognized fitness mode names.
var ValidFitnessModes = map[FitnessMode]bool{
	FitnessMultiplicative: true,
	FitnessAdditive:       true,
	FitnessExponential:    true,
}

// FitnessEvaluator scores individuals from the mutants they carry, drawing
// coefficients from a SelectionCoefficientFactory.
// Thread-safety: NOT thread-safe.
type FitnessEvaluator struct {
	mode    FitnessMode
	factory *SelectionCoefficientFactory
	subPops []int
	sink    trace.Sink
	metrics *Metrics
}

// NewFitnessEvaluator creates an evaluator. sink and metrics may be nil.
func NewFitnessEvaluator(mode FitnessMode, factory *SelectionCoefficientFactory, subPops []int, sink trace.Sink, metrics *Metrics) (*FitnessEvaluator, error) {
	if !ValidFitnessModes[mode] {
		return nil, fmt.Errorf("%w: unknown fitness mode %q", ErrConfig, mode)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: fitness evaluation requires a coefficient factory", ErrConfig)
	}
	return &FitnessEvaluator{mode: mode, factory: factory, subPops: subPops, sink: sink, metrics: metrics}, nil
}

// Factory returns the coefficient factory the evaluator draws from.
func (e *FitnessEvaluator) Factory() *SelectionCoefficientFactory { return e.factory }

// Apply evaluates and stores the fitness of every applicable individual,
// then logs the loci whose coefficients were first resolved by this call.
func (e *FitnessEvaluator) Apply(pop *Population) error {
	e.factory.ResetNewLoci()
	for _, sp := range applicableSubPops(pop, e.subPops) {
		begin := pop.SubPopBegin(sp)
		for ind := begin; ind < begin+pop.SubPopSize(sp); ind++ {
			f, err := e.IndFitness(pop.Genotype(ind))
			if err != nil {
				return fmt.Errorf("fitness of individual %d: %w", ind, err)
			}
			pop.SetFitness(ind, f)
		}
	}
	newLoci := e.factory.NewLoci()
	e.metrics.recordNewMutants(len(newLoci))
	if len(newLoci) == 0 || e.sink == nil {
		return nil
	}
	return e.logNewMutants(newLoci)
}

func (e *FitnessEvaluator) logNewMutants(loci []Allele) (err error) {
	var out io.Writer
	if out, err = e.sink.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := e.sink.Close(); err == nil {
			err = cerr
		}
	}()
	for _, locus := range loci {
		c, err := e.factory.CoefficientOf(locus)
		if err != nil {
			return err
		}
		if err := trace.WriteLine(out, trace.NewMutantRecord{Locus: uint64(locus), S: c.S, H: c.H}.Line()); err != nil {
			return err
		}
	}
	return nil
}

// IndFitness computes the fitness of one individual from all its slots.
// Additive and exponential modes take the per-copy fast path while every
// resolved dominance coefficient is 0.5.
func (e *FitnessEvaluator) IndFitness(geno []Allele) (float64, error) {
	switch e.mode {
	case FitnessAdditive:
		s, err := e.penalty(geno)
		return math.Max(0, 1-s), err
	case FitnessExponential:
		s, err := e.penalty(geno)
		return math.Exp(-s), err
	default:
		return e.multiplicative(geno)
	}
}

// penalty returns the summed selection penalty of an individual. A fast-path
// sum that resolved a non-0.5 dominance on the way is redone in full.
func (e *FitnessEvaluator) penalty(geno []Allele) (float64, error) {
	if e.factory.Additive() {
		s, err := e.halfSum(geno)
		if err != nil || e.factory.Additive() {
			return s, err
		}
	}
	return e.dominanceSum(geno)
}

// halfSum adds s/2 once per carried copy.
func (e *FitnessEvaluator) halfSum(geno []Allele) (float64, error) {
	s := 0.0
	for _, a := range geno {
		if a == 0 {
			continue
		}
		c, err := e.factory.CoefficientOf(a)
		if err != nil {
			return 0, err
		}
		s += c.S / 2
	}
	return s, nil
}

// dominanceSum adds s·h per heterozygous locus and s per homozygous locus.
func (e *FitnessEvaluator) dominanceSum(geno []Allele) (float64, error) {
	s := 0.0
	err := e.eachLocus(geno, func(c SelCoef, homozygous bool) {
		if homozygous {
			s += c.S
		} else {
			s += c.S * c.H
		}
	})
	return s, err
}

func (e *FitnessEvaluator) multiplicative(geno []Allele) (float64, error) {
	f := 1.0
	err := e.eachLocus(geno, func(c SelCoef, homozygous bool) {
		if homozygous {
			f *= 1 - c.S
		} else {
			f *= 1 - c.S*c.H
		}
	})
	return f, err
}

// eachLocus tallies the copies of every distinct locus and visits the loci
// in ascending ID order.
func (e *FitnessEvaluator) eachLocus(geno []Allele, fn func(c SelCoef, homozygous bool)) error {
	counts := MutantCounts(geno)
	loci := make([]Allele, 0, len(counts))
	for a := range counts {
		loci = append(loci, a)
	}
	slices.Sort(loci)
	for _, a := range loci {
		c, err := e.factory.CoefficientOf(a)
		if err != nil {
			return err
		}
		fn(c, counts[a] > 1)
	}
	return nil
}

// MutantCounts returns the number of carried copies of every nonzero allele.
func MutantCounts(alleles []Allele) map[Allele]int {
	counts := make(map[Allele]int)
	for _, a := range alleles {
		if a != 0 {
			counts[a]++
		}
	}
	return counts
}
