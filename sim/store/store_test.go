package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(runID string, replicate, gen int) Snapshot {
	return Snapshot{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
		RunID:         runID,
		Replicate:     replicate,
		Generation:    gen,
		Ploidy:        2,
		SubPopSizes:   []int{2},
		NumLoci:       []int{2},
		Genotypes:     []uint32{4, 0, 4, 7, 4, 0, 4, 0},
		Fitness:       []float64{1, 0.98},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	// GIVEN snapshots of two replicates saved out of generation order
	for _, snap := range []Snapshot{
		testSnapshot("run", 0, 10),
		testSnapshot("run", 0, 5),
		testSnapshot("run", 1, 5),
	} {
		require.NoError(t, s.SaveSnapshot(ctx, snap))
	}

	// WHEN one is loaded back
	got, ok, err := s.GetSnapshot(ctx, Key{RunID: "run", Replicate: 0, Generation: 10})

	// THEN it round-trips exactly
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testSnapshot("run", 0, 10), got)

	// AND generations are listed per replicate in ascending order
	gens, err := s.ListGenerations(ctx, "run", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10}, gens)

	// AND a missing key reports not found without error
	_, ok, err = s.GetSnapshot(ctx, Key{RunID: "run", Replicate: 2, Generation: 5})
	require.NoError(t, err)
	assert.False(t, ok)

	// AND saving the same key again overwrites
	updated := testSnapshot("run", 1, 5)
	updated.Fitness = []float64{0.5, 0.5}
	require.NoError(t, s.SaveSnapshot(ctx, updated))
	got, ok, err = s.GetSnapshot(ctx, updated.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 0.5}, got.Fitness)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Init(context.Background()))
	exerciseStore(t, s)
}

func TestMemoryStore_CopiesSavedSlices(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Init(ctx))

	snap := testSnapshot("run", 0, 1)
	require.NoError(t, s.SaveSnapshot(ctx, snap))
	snap.Genotypes[0] = 99

	got, _, err := s.GetSnapshot(ctx, snap.Key())
	require.NoError(t, err)
	assert.Equal(t, uint32(4), got.Genotypes[0])
}

func TestMemoryStore_RequiresInit(t *testing.T) {
	err := NewMemoryStore().SaveSnapshot(context.Background(), testSnapshot("run", 0, 1))
	assert.Error(t, err)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s := NewSQLiteStore(path)
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.SaveSnapshot(ctx, testSnapshot("run", 0, 3)))
	require.NoError(t, s.Close())

	reopened := NewSQLiteStore(path)
	require.NoError(t, reopened.Init(ctx))
	t.Cleanup(func() { _ = reopened.Close() })
	gens, err := reopened.ListGenerations(ctx, "run", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, gens)
}

func TestSQLiteStore_RequiresPathAndInit(t *testing.T) {
	assert.Error(t, NewSQLiteStore("").Init(context.Background()))
	_, _, err := NewSQLiteStore("x.db").GetSnapshot(context.Background(), Key{})
	assert.Error(t, err)
}

func TestDecodeSnapshot_RejectsVersionMismatch(t *testing.T) {
	snap := testSnapshot("run", 0, 1)
	snap.CodecVersion = CurrentCodecVersion + 1
	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)

	_, err = DecodeSnapshot(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.NoError(t, CloseIfSupported(s))

	s, err = NewStore("sqlite", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	assert.NoError(t, CloseIfSupported(s))

	_, err = NewStore("postgres", "")
	assert.Error(t, err)
}
