package store

import (
	"context"
	"errors"
	"slices"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[Key]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.snapshots = make(map[Key]Snapshot)
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("memory store is not initialized")
	}
	snap.Genotypes = slices.Clone(snap.Genotypes)
	snap.Fitness = slices.Clone(snap.Fitness)
	s.snapshots[snap.Key()] = snap
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, key Key) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[key]
	return snap, ok, nil
}

func (s *MemoryStore) ListGenerations(_ context.Context, runID string, replicate int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var gens []int
	for k := range s.snapshots {
		if k.RunID == runID && k.Replicate == replicate {
			gens = append(gens, k.Generation)
		}
	}
	slices.Sort(gens)
	return gens, nil
}
