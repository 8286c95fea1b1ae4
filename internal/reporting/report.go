package reporting

import (
	"time"

	"prediction-market-lab/internal/domain"
)

// LeaderboardReport is a rendered view of one leaderboard snapshot.
type LeaderboardReport struct {
	// Metadata
	GeneratedAt time.Time
	SnapshotID  string
	SortKey     domain.SortKey
	Digest      string
	TraderCount int
	FailedCount int
	BuiltAt     int64 // Unix ms

	// Ranked rows, rank ascending
	Rows []LeaderboardRow
}

// LeaderboardRow represents one row in the leaderboard table.
type LeaderboardRow struct {
	Rank         int
	Wallet       string
	TotalBets    int
	ResolvedBets int
	WonBets      int
	LostBets     int
	TotalWagered uint64 // lamports
	TotalWon     uint64 // lamports
	ProfitLoss   int64  // lamports
	WinRate      float64
	ROI          float64
}

// UserReport summarises one wallet.
type UserReport struct {
	GeneratedAt time.Time
	Wallet      string
	Stats       domain.UserStats
	Positions   []domain.Position
}
