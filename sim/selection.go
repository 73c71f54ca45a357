package sim

import (
	"fmt"
	"math"

	"github.com/popgen-sim/infsites/sim/dist"
)

// SelCoef is a memoized (selection, dominance) pair for one locus.
type SelCoef struct {
	S float64
	H float64
}

// CoefValue is the tagged result of a CoefficientSource: either a scalar s,
// or a sequence whose first element is s and optional second element is h.
type CoefValue struct {
	scalar bool
	values []float64
}

// Scalar returns a CoefValue carrying only s (h defaults to 0.5).
func Scalar(s float64) CoefValue {
	return CoefValue{scalar: true, values: []float64{s}}
}

// Sequence returns a CoefValue carrying (s) or (s, h). Extra elements are
// ignored; an empty sequence is rejected when resolved.
func Sequence(vals ...float64) CoefValue {
	return CoefValue{values: append([]float64(nil), vals...)}
}

func (v CoefValue) resolve() (SelCoef, error) {
	if len(v.values) == 0 {
		return SelCoef{}, fmt.Errorf("%w: coefficient source returned an empty sequence", ErrInvalidCoefficient)
	}
	c := SelCoef{S: v.values[0], H: dist.DefaultDominance}
	if !v.scalar && len(v.values) > 1 {
		c.H = v.values[1]
	}
	if math.IsNaN(c.S) || math.IsNaN(c.H) {
		return SelCoef{}, fmt.Errorf("%w: coefficient source returned a non-numeric value", ErrInvalidCoefficient)
	}
	return c, nil
}

// CoefficientSource is an external provider of selection coefficients.
// The factory calls it at most once per locus ID: the first answer is cached
// for the lifetime of the factory and never requested again.
type CoefficientSource interface {
	Coefficient(locus Allele) (CoefValue, error)
}

// NullaryFunc adapts a function that ignores the locus ID.
type NullaryFunc func() (CoefValue, error)

func (f NullaryFunc) Coefficient(_ Allele) (CoefValue, error) { return f() }

// LocusFunc adapts a function keyed by locus ID.
type LocusFunc func(locus Allele) (CoefValue, error)

func (f LocusFunc) Coefficient(locus Allele) (CoefValue, error) { return f(locus) }

// SelectionCoefficientFactory lazily samples and memoizes one SelCoef per
// locus ID from either a distribution or an external source.
//
// The cache persists across generations; the new-mutant log is reset by the
// owning FitnessEvaluator on every call. Thread-safety: NOT thread-safe.
type SelectionCoefficientFactory struct {
	sampler  dist.CoefficientSampler
	source   CoefficientSource
	rng      *Stream
	cache    map[Allele]SelCoef
	newLoci  []Allele
	additive bool
}

// NewSelectionCoefficientFactory requires exactly one of spec or source.
func NewSelectionCoefficientFactory(spec *dist.DistSpec, source CoefficientSource, rng *Stream) (*SelectionCoefficientFactory, error) {
	if (spec == nil) == (source == nil) {
		return nil, fmt.Errorf("%w: exactly one of a coefficient distribution or a coefficient source is required", ErrConfig)
	}
	f := &SelectionCoefficientFactory{
		source:   source,
		rng:      rng,
		cache:    make(map[Allele]SelCoef),
		additive: true,
	}
	if spec != nil {
		sampler, err := dist.NewCoefficientSampler(*spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		f.sampler = sampler
	}
	return f, nil
}

// CoefficientOf returns the cached pair of locus, resolving and caching it
// on first use.
func (f *SelectionCoefficientFactory) CoefficientOf(locus Allele) (SelCoef, error) {
	if c, ok := f.cache[locus]; ok {
		return c, nil
	}
	var c SelCoef
	if f.source != nil {
		v, err := f.source.Coefficient(locus)
		if err != nil {
			return SelCoef{}, fmt.Errorf("coefficient of locus %d: %w", locus, err)
		}
		if c, err = v.resolve(); err != nil {
			return SelCoef{}, fmt.Errorf("coefficient of locus %d: %w", locus, err)
		}
	} else {
		c.S, c.H = f.sampler.Sample(f.rng)
	}
	f.cache[locus] = c
	f.newLoci = append(f.newLoci, locus)
	if c.H != dist.DefaultDominance {
		f.additive = false
	}
	return c, nil
}

// Additive reports whether every dominance coefficient resolved so far is
// 0.5. Once false it never becomes true again.
func (f *SelectionCoefficientFactory) Additive() bool { return f.additive }

// NewLoci returns loci first resolved since the last ResetNewLoci, in
// resolution order.
func (f *SelectionCoefficientFactory) NewLoci() []Allele { return f.newLoci }

// ResetNewLoci clears the new-mutant log; the cache itself is kept.
func (f *SelectionCoefficientFactory) ResetNewLoci() { f.newLoci = f.newLoci[:0] }

// Cached returns the number of memoized loci.
func (f *SelectionCoefficientFactory) Cached() int { return len(f.cache) }
