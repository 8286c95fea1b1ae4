package memory

import (
	"context"
	"sort"
	"sync"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.LeaderboardSnapshotStore.
type SnapshotStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.LeaderboardSnapshot
	order []string // insertion order, breaks created_at ties
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.LeaderboardSnapshot),
	}
}

// Insert adds a new snapshot. Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.LeaderboardSnapshot) error {
	if err := storage.ValidateSnapshot(snap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.SnapshotID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[snap.SnapshotID] = storage.CloneSnapshot(snap, true)
	s.order = append(s.order, snap.SnapshotID)
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(_ context.Context, snapshotID string) (*domain.LeaderboardSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[snapshotID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return storage.CloneSnapshot(snap, true), nil
}

// GetLatest retrieves the newest snapshot for a sort key.
func (s *SnapshotStore) GetLatest(_ context.Context, sortKey domain.SortKey) (*domain.LeaderboardSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.bySortKey(sortKey)
	if len(matches) == 0 {
		return nil, storage.ErrNotFound
	}
	return storage.CloneSnapshot(matches[0], true), nil
}

// List retrieves snapshot headers for a sort key, newest first.
func (s *SnapshotStore) List(_ context.Context, sortKey domain.SortKey, limit int) ([]*domain.LeaderboardSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.bySortKey(sortKey)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	result := make([]*domain.LeaderboardSnapshot, len(matches))
	for i, snap := range matches {
		result[i] = storage.CloneSnapshot(snap, false)
	}
	return result, nil
}

// bySortKey returns matching snapshots, newest first. Caller holds the lock.
func (s *SnapshotStore) bySortKey(sortKey domain.SortKey) []*domain.LeaderboardSnapshot {
	var result []*domain.LeaderboardSnapshot
	for i := len(s.order) - 1; i >= 0; i-- {
		snap := s.data[s.order[i]]
		if snap.SortKey == sortKey {
			result = append(result, snap)
		}
	}
	// Stable keeps later inserts first on equal created_at
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})
	return result
}

var _ storage.LeaderboardSnapshotStore = (*SnapshotStore)(nil)
