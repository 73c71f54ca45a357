// Package store persists population snapshots taken during a run.
package store

import (
	"context"
	"fmt"
)

// Snapshot is the full haplotype state of one replicate at one generation.
// Genotypes uses the population's flat layout: individual-major, then ploidy
// copy, then chromosome, then slot.
type Snapshot struct {
	SchemaVersion int       `json:"schema_version"`
	CodecVersion  int       `json:"codec_version"`
	RunID         string    `json:"run_id"`
	Replicate     int       `json:"replicate"`
	Generation    int       `json:"generation"`
	Ploidy        int       `json:"ploidy"`
	SubPopSizes   []int     `json:"subpop_sizes"`
	NumLoci       []int     `json:"num_loci"`
	Genotypes     []uint32  `json:"genotypes"`
	Fitness       []float64 `json:"fitness"`
}

// Key identifies a snapshot.
type Key struct {
	RunID      string
	Replicate  int
	Generation int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d", k.RunID, k.Replicate, k.Generation)
}

// Key returns the identity of the snapshot.
func (s Snapshot) Key() Key {
	return Key{RunID: s.RunID, Replicate: s.Replicate, Generation: s.Generation}
}

// Store persists snapshots. Implementations are safe for concurrent use by
// parallel replicates.
type Store interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	GetSnapshot(ctx context.Context, key Key) (Snapshot, bool, error)
	ListGenerations(ctx context.Context, runID string, replicate int) ([]int, error)
}

// NewStore creates a store by backend name.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot store backend: %s", kind)
	}
}

// CloseIfSupported closes stores that hold resources.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
