package sim

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical populations and output lines.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// SubsystemReplicate returns the subsystem name for replicate N.
// Every operator of a replicate draws from this one stream.
func SubsystemReplicate(id int) string {
	return fmt.Sprintf("replicate_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated random streams per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName), fed to a PCG
// generator together with the raw master seed.
//
// Thread-safety: NOT thread-safe. ForSubsystem must be called from a single
// goroutine; the returned streams may then be handed to separate goroutines,
// one stream per goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*Stream
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*Stream),
	}
}

// ForSubsystem returns a deterministically-seeded stream for the named subsystem.
// The same subsystem name always returns the same *Stream instance (cached).
func (p *PartitionedRNG) ForSubsystem(name string) *Stream {
	if s, ok := p.subsystems[name]; ok {
		return s
	}
	derived := int64(p.key) ^ fnv1a64(name)
	s := NewStream(uint64(p.key), uint64(derived))
	p.subsystems[name] = s
	return s
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// === Stream ===

// Stream is the single random stream consumed by every operator of one
// replicate. The draw order of its methods is part of the reproducibility
// contract: operators must call it in their fixed nested iteration order.
type Stream struct {
	r *rand.Rand
}

// NewStream creates a stream from two PCG seed words.
func NewStream(seed1, seed2 uint64) *Stream {
	return &Stream{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// Source exposes the underlying generator so gonum distributions draw from
// the same sequence.
func (s *Stream) Source() rand.Source {
	return s.r
}

// Geometric returns the number of Bernoulli(p) trials up to and including the
// first success (support 1, 2, ...). p <= 0 never succeeds and returns
// math.MaxUint64; p >= 1 always returns 1. Both edge cases consume no draw.
func (s *Stream) Geometric(p float64) uint64 {
	if p <= 0 {
		return math.MaxUint64
	}
	if p >= 1 {
		return 1
	}
	u := s.r.Float64()
	for u == 0 {
		u = s.r.Float64()
	}
	k := math.Floor(math.Log(u)/math.Log1p(-p)) + 1
	if k >= math.MaxUint64 || math.IsInf(k, 0) || math.IsNaN(k) {
		return math.MaxUint64
	}
	return uint64(k)
}

// UintN returns a uniform integer in [0, n). n must be > 0.
func (s *Stream) UintN(n uint64) uint64 {
	return s.r.Uint64N(n)
}

// Bit returns a fair coin flip.
func (s *Stream) Bit() bool {
	return s.r.Uint64()&1 == 1
}

// Float64 returns a uniform value in [0, 1).
func (s *Stream) Float64() float64 {
	return s.r.Float64()
}

// Gamma samples a gamma variate with the given shape and scale.
func (s *Stream) Gamma(shape, scale float64) float64 {
	g := distuv.Gamma{Alpha: shape, Beta: 1 / scale, Src: s.r}
	return g.Rand()
}

// Categorical draws an index with probability proportional to weights.
// All-zero (or empty-sum) weights fall back to a uniform choice.
func (s *Stream) Categorical(weights []float64) int {
	return s.NewCategorical(weights)()
}

// NewCategorical builds a sampler over weights once and returns a function
// drawing one index per call from the stream. All-zero (or empty-sum)
// weights give a uniform sampler. weights must not change while the sampler
// is in use.
func (s *Stream) NewCategorical(weights []float64) func() int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		n := uint64(len(weights))
		return func() int { return int(s.r.Uint64N(n)) }
	}
	c := distuv.NewCategorical(weights, s.r)
	return func() int { return int(c.Rand()) }
}
