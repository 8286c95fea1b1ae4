package storage

import (
	"context"

	"prediction-market-lab/internal/domain"
)

// LeaderboardSnapshotStore provides access to leaderboard_snapshots storage.
// Snapshots are append-only.
type LeaderboardSnapshotStore interface {
	// Insert adds a snapshot with its entries. Returns ErrDuplicateKey if snapshot_id exists.
	Insert(ctx context.Context, s *domain.LeaderboardSnapshot) error

	// GetByID retrieves a snapshot with entries. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, snapshotID string) (*domain.LeaderboardSnapshot, error)

	// GetLatest retrieves the newest snapshot for a sort key. Returns ErrNotFound if none.
	GetLatest(ctx context.Context, sortKey domain.SortKey) (*domain.LeaderboardSnapshot, error)

	// List retrieves snapshot headers (without entries) for a sort key, newest first.
	// limit <= 0 returns all.
	List(ctx context.Context, sortKey domain.SortKey, limit int) ([]*domain.LeaderboardSnapshot, error)
}

// ValidateSnapshot checks the fields every store requires.
func ValidateSnapshot(s *domain.LeaderboardSnapshot) error {
	if s == nil || s.SnapshotID == "" || !s.SortKey.IsValid() {
		return ErrInvalidInput
	}
	for i, e := range s.Entries {
		if e.Rank != i+1 {
			return ErrInvalidInput
		}
	}
	return nil
}

// CloneSnapshot deep-copies a snapshot. withEntries=false drops the entries.
func CloneSnapshot(s *domain.LeaderboardSnapshot, withEntries bool) *domain.LeaderboardSnapshot {
	out := *s
	out.Entries = nil
	if withEntries && len(s.Entries) > 0 {
		out.Entries = make([]domain.LeaderboardEntry, len(s.Entries))
		copy(out.Entries, s.Entries)
	}
	return &out
}
