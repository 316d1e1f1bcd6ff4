package dataset

import (
	"context"
	"errors"
	"sync"
)

// Store holds the current snapshot behind a read-write lock. The engine is
// pure, so swapping the snapshot is the only mutation in the whole service.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore creates an empty store; Replace installs the first snapshot.
func NewStore() *Store {
	return &Store{}
}

// Replace installs a snapshot under last-write-wins: a snapshot generated
// before the current one is rejected, so a slow refresh can never overwrite
// a newer dataset. Returns whether the snapshot was applied.
func (s *Store) Replace(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap != nil && snap.GeneratedAt.Before(s.snap.GeneratedAt) {
		return false
	}
	s.snap = &snap
	return true
}

// Snapshot returns the current snapshot, if any. The snapshot is treated as
// immutable by all callers; it is safe to read without further locking.
func (s *Store) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return Snapshot{}, false
	}
	return *s.snap, true
}

// CheckReadiness returns nil once a dataset has been loaded, or an error
// describing why the service is not yet ready.
func (s *Store) CheckReadiness(_ context.Context) error {
	if _, ok := s.Snapshot(); !ok {
		return errors.New("no dataset loaded yet")
	}
	return nil
}
