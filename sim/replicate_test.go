package sim

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/popgen-sim/infsites/sim/internal/testutil"
	"github.com/popgen-sim/infsites/sim/store"
	"github.com/popgen-sim/infsites/sim/trace"
)

// bufferedSinks collects the mutation lines of every replicate in memory.
type bufferedSinks struct {
	mu   sync.Mutex
	bufs map[int]*bytes.Buffer
}

func (b *bufferedSinks) factory(replicate int) (Sinks, func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bufs == nil {
		b.bufs = map[int]*bytes.Buffer{}
	}
	buf := &bytes.Buffer{}
	b.bufs[replicate] = buf
	return Sinks{Mutations: trace.NewWriterSink(buf)}, func() error { return nil }, nil
}

func TestRunReplicates_IndependentOfParallelism(t *testing.T) {
	// GIVEN three replicates
	cfg := testSimConfig()
	cfg.Generations = 8
	cfg.Replicates = 3

	run := func(parallelism int) (*bufferedSinks, []ReplicateResult) {
		cfg.Parallelism = parallelism
		sinks := &bufferedSinks{}
		results, err := RunReplicates(context.Background(), cfg, ReplicateOptions{NewSinks: sinks.factory})
		require.NoError(t, err)
		return sinks, results
	}

	// WHEN they run sequentially and in parallel
	seqSinks, seqResults := run(1)
	parSinks, parResults := run(3)

	// THEN each replicate produces the same output either way
	assert.Equal(t, seqResults, parResults)
	for i := 0; i < 3; i++ {
		assert.Equal(t, seqSinks.bufs[i].String(), parSinks.bufs[i].String(), "replicate %d", i)
		assert.Equal(t, i, seqResults[i].Replicate)
		assert.Equal(t, 8, seqResults[i].Generation)
		assert.Equal(t, 30, seqResults[i].Size)
	}
	// AND replicates differ from each other
	assert.NotEqual(t, seqSinks.bufs[0].String(), seqSinks.bufs[1].String())
}

func TestRunReplicates_SharedMetricsAndStore(t *testing.T) {
	cfg := testSimConfig()
	cfg.Generations = 4
	cfg.Replicates = 2
	cfg.Parallelism = 2
	m := NewMetrics()
	st := store.NewMemoryStore()
	require.NoError(t, st.Init(context.Background()))

	_, err := RunReplicates(context.Background(), cfg, ReplicateOptions{
		RunID:    "shared",
		Metrics:  m,
		Store:    st,
		NewSinks: (&bufferedSinks{}).factory,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(8), m.Snapshot().Generations)
	for rep := 0; rep < 2; rep++ {
		gens, err := st.ListGenerations(context.Background(), "shared", rep)
		require.NoError(t, err)
		assert.Equal(t, []int{4}, gens)
	}
}

func TestRunReplicates_RejectsInvalidConfig(t *testing.T) {
	cfg := testSimConfig()
	cfg.Replicates = 0
	_, err := RunReplicates(context.Background(), cfg, ReplicateOptions{})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRunReplicates_WritesFileSinks(t *testing.T) {
	// GIVEN file outputs for two replicates
	dir := t.TempDir()
	cfg := testSimConfig()
	cfg.Generations = 3
	cfg.Replicates = 2
	cfg.Output.Mutations = trace.FileConfig{Path: filepath.Join(dir, "mutations.txt")}
	cfg.Output.FixedSites = trace.FileConfig{Path: filepath.Join(dir, "fixed.txt")}

	_, err := RunReplicates(context.Background(), cfg, ReplicateOptions{})
	require.NoError(t, err)

	// THEN each replicate has its own mutation file
	for rep := 0; rep < 2; rep++ {
		lines := testutil.ReadLines(t, ReplicatePath(cfg.Output.Mutations.Path, rep))
		assert.NotEmpty(t, lines)
	}
}

func TestReplicatePath(t *testing.T) {
	assert.Equal(t, "out/mutations.rep2.txt", ReplicatePath("out/mutations.txt", 2))
	assert.Equal(t, "events.rep0", ReplicatePath("events", 0))
}
