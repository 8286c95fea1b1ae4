package reporting

import (
	"context"
	"time"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/storage"
)

// Generator produces reports from stored snapshots.
type Generator struct {
	store storage.LeaderboardSnapshotStore
	now   func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(store storage.LeaderboardSnapshotStore) *Generator {
	return &Generator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Latest builds a report from the newest snapshot for sortKey.
func (g *Generator) Latest(ctx context.Context, sortKey domain.SortKey) (*LeaderboardReport, error) {
	snap, err := g.store.GetLatest(ctx, sortKey)
	if err != nil {
		return nil, err
	}
	return g.Leaderboard(snap), nil
}

// ByID builds a report from a specific snapshot.
func (g *Generator) ByID(ctx context.Context, snapshotID string) (*LeaderboardReport, error) {
	snap, err := g.store.GetByID(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return g.Leaderboard(snap), nil
}

// Leaderboard converts a snapshot into report rows.
func (g *Generator) Leaderboard(snap *domain.LeaderboardSnapshot) *LeaderboardReport {
	rows := make([]LeaderboardRow, len(snap.Entries))
	for i, e := range snap.Entries {
		rows[i] = LeaderboardRow{
			Rank:         e.Rank,
			Wallet:       e.Wallet.String(),
			TotalBets:    e.Stats.TotalBets,
			ResolvedBets: e.Stats.ResolvedBets,
			WonBets:      e.Stats.WonBets,
			LostBets:     e.Stats.LostBets,
			TotalWagered: e.Stats.TotalWagered,
			TotalWon:     e.Stats.TotalWon,
			ProfitLoss:   e.Stats.ProfitLoss,
			WinRate:      e.Stats.WinRate,
			ROI:          e.Stats.ROI,
		}
	}

	return &LeaderboardReport{
		GeneratedAt: g.now(),
		SnapshotID:  snap.SnapshotID,
		SortKey:     snap.SortKey,
		Digest:      snap.Digest,
		TraderCount: snap.TraderCount,
		FailedCount: snap.FailedCount,
		BuiltAt:     snap.CreatedAt,
		Rows:        rows,
	}
}

// User builds a per-wallet report.
func (g *Generator) User(wallet solana.PublicKey, stats domain.UserStats, positions []domain.Position) *UserReport {
	return &UserReport{
		GeneratedAt: g.now(),
		Wallet:      wallet.String(),
		Stats:       stats,
		Positions:   positions,
	}
}
