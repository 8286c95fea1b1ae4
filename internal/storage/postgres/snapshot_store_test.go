package postgres

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/storage"
)

func wallet(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func createTestSnapshot(id string, key domain.SortKey, createdAt int64) *domain.LeaderboardSnapshot {
	return &domain.LeaderboardSnapshot{
		SnapshotID:  id,
		SortKey:     key,
		Limit:       50,
		Digest:      "digest-" + id,
		TraderCount: 3,
		FailedCount: 1,
		CreatedAt:   createdAt,
		Entries: []domain.LeaderboardEntry{
			{Rank: 1, Wallet: wallet(1), Stats: domain.UserStats{
				TotalBets: 2, ResolvedBets: 2, WonBets: 1, LostBets: 1,
				TotalWagered: math.MaxUint64, TotalWon: 500, UnclaimedWinnings: 500,
				WinRate: 50, ProfitLoss: math.MinInt64, ROI: -12.5,
			}},
			{Rank: 2, Wallet: wallet(2), Stats: domain.UserStats{TotalBets: 1, ResolvedBets: 1, LostBets: 1, TotalWagered: 10, ProfitLoss: -10, ROI: -100}},
		},
	}
}

func TestSnapshotStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	snap := createTestSnapshot("11111111-1111-4111-8111-111111111111", domain.SortROI, 1000)
	require.NoError(t, store.Insert(ctx, snap))

	got, err := store.GetByID(ctx, snap.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestSnapshotStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	snap := createTestSnapshot("dup", domain.SortROI, 1000)
	require.NoError(t, store.Insert(ctx, snap))

	err := store.Insert(ctx, snap)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSnapshotStore_LatestAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSnapshotStore(pool)

	_, err := store.GetLatest(ctx, domain.SortROI)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Insert(ctx, createTestSnapshot("a", domain.SortROI, 100)))
	require.NoError(t, store.Insert(ctx, createTestSnapshot("b", domain.SortROI, 300)))
	require.NoError(t, store.Insert(ctx, createTestSnapshot("c", domain.SortWinRate, 500)))
	require.NoError(t, store.Insert(ctx, createTestSnapshot("d", domain.SortROI, 200)))

	latest, err := store.GetLatest(ctx, domain.SortROI)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.SnapshotID)
	assert.Len(t, latest.Entries, 2)

	list, err := store.List(ctx, domain.SortROI, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].SnapshotID)
	assert.Equal(t, "d", list[1].SnapshotID)
	assert.Nil(t, list[0].Entries)

	all, err := store.List(ctx, domain.SortROI, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
