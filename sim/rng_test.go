package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

// === SimulationKey Tests ===

func TestSimulationKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSimulationKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSimulationKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

func TestSimulationKey_Labels(t *testing.T) {
	assert.Equal(t, map[string]string{"seed": "-3"}, NewSimulationKey(-3).Labels())
}

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// BDD: Same key+name produces same sequence
	rng1 := NewPartitionedRNG(NewSimulationKey(42))
	rng2 := NewPartitionedRNG(NewSimulationKey(42))

	for i := 0; i < 3; i++ {
		v1 := rng1.ForSubsystem(SubsystemReplicate(0)).Float64()
		v2 := rng2.ForSubsystem(SubsystemReplicate(0)).Float64()
		if v1 != v2 {
			t.Errorf("value %d: got %v and %v, want identical", i, v1, v2)
		}
	}
}

func TestPartitionedRNG_ReplicateIsolation(t *testing.T) {
	// BDD: Different replicates draw different sequences
	rng := NewPartitionedRNG(NewSimulationKey(42))
	a := rng.ForSubsystem(SubsystemReplicate(0))
	b := rng.ForSubsystem(SubsystemReplicate(1))

	same := 0
	for i := 0; i < 10; i++ {
		if a.UintN(1<<40) == b.UintN(1<<40) {
			same++
		}
	}
	assert.Less(t, same, 10)
}

func TestPartitionedRNG_CachesStreams(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(7))
	assert.Same(t, rng.ForSubsystem("x"), rng.ForSubsystem("x"))
	assert.Equal(t, NewSimulationKey(7), rng.Key())
}

// === Stream Tests ===

func TestStream_GeometricEdgeCases(t *testing.T) {
	s := NewStream(1, 2)
	assert.Equal(t, uint64(math.MaxUint64), s.Geometric(0))
	assert.Equal(t, uint64(math.MaxUint64), s.Geometric(-0.5))
	assert.Equal(t, uint64(1), s.Geometric(1))
}

func TestStream_GeometricMean(t *testing.T) {
	// GIVEN success probability 0.1
	s := NewStream(3, 4)
	draws := make([]float64, 20000)
	for i := range draws {
		k := s.Geometric(0.1)
		// THEN every draw is on the support {1, 2, ...}
		if k < 1 {
			t.Fatalf("draw %d = %d, want >= 1", i, k)
		}
		draws[i] = float64(k)
	}
	// AND the mean is close to 1/p
	assert.InDelta(t, 10.0, stat.Mean(draws, nil), 0.3)
}

func TestStream_BitIsFair(t *testing.T) {
	s := NewStream(5, 6)
	ones := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if s.Bit() {
			ones++
		}
	}
	assert.InDelta(t, 0.5, float64(ones)/n, 0.02)
}

func TestStream_GammaMean(t *testing.T) {
	s := NewStream(7, 8)
	draws := make([]float64, 20000)
	for i := range draws {
		draws[i] = s.Gamma(2, 3)
	}
	assert.InDelta(t, 6.0, stat.Mean(draws, nil), 0.2)
}

func TestStream_Categorical(t *testing.T) {
	s := NewStream(9, 10)
	for i := 0; i < 100; i++ {
		// a single positive weight is always chosen
		assert.Equal(t, 1, s.Categorical([]float64{0, 2, 0}))
		// all-zero weights fall back to a uniform choice
		k := s.Categorical([]float64{0, 0, 0})
		assert.GreaterOrEqual(t, k, 0)
		assert.Less(t, k, 3)
	}
}

func TestStream_NewCategoricalMatchesSingleDraws(t *testing.T) {
	// GIVEN two streams with the same seed
	weights := []float64{1, 0, 3, 2, 0.5}
	a, b := NewStream(21, 22), NewStream(21, 22)

	// WHEN one draws from a prebuilt sampler and the other draw by draw
	pick := a.NewCategorical(weights)
	for i := 0; i < 500; i++ {
		// THEN the index sequences are identical
		assert.Equal(t, b.Categorical(weights), pick(), "draw %d", i)
	}
}

func TestStream_NewCategoricalZeroWeights(t *testing.T) {
	pick := NewStream(23, 24).NewCategorical([]float64{0, 0, 0, 0})
	seen := map[int]bool{}
	for i := 0; i < 400; i++ {
		k := pick()
		assert.GreaterOrEqual(t, k, 0)
		assert.Less(t, k, 4)
		seen[k] = true
	}
	assert.Len(t, seen, 4)
}

func TestStream_UintNRange(t *testing.T) {
	s := NewStream(11, 12)
	for i := 0; i < 1000; i++ {
		assert.Less(t, s.UintN(5), uint64(5))
	}
}
