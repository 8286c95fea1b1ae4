package domain

import "prediction-market-lab/internal/solana"

// SortKey selects the leaderboard ordering.
type SortKey string

const (
	SortROI          SortKey = "roi"
	SortWinRate      SortKey = "winRate"
	SortTotalWagered SortKey = "totalWagered"
	SortProfitLoss   SortKey = "profitLoss"
	SortTotalBets    SortKey = "totalBets"
)

// SortKeys lists every supported key.
var SortKeys = []SortKey{SortROI, SortWinRate, SortTotalWagered, SortProfitLoss, SortTotalBets}

// String returns the string representation of SortKey.
func (k SortKey) String() string {
	return string(k)
}

// IsValid checks if the key is supported.
func (k SortKey) IsValid() bool {
	for _, known := range SortKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Value extracts the sort value from stats.
func (k SortKey) Value(s UserStats) float64 {
	switch k {
	case SortWinRate:
		return s.WinRate
	case SortTotalWagered:
		return float64(s.TotalWagered)
	case SortProfitLoss:
		return float64(s.ProfitLoss)
	case SortTotalBets:
		return float64(s.TotalBets)
	default:
		return s.ROI
	}
}

// Less reports whether a ranks strictly below b under this key.
// Integer keys compare exactly rather than through float64.
func (k SortKey) Less(a, b UserStats) bool {
	switch k {
	case SortTotalWagered:
		return a.TotalWagered < b.TotalWagered
	case SortProfitLoss:
		return a.ProfitLoss < b.ProfitLoss
	case SortTotalBets:
		return a.TotalBets < b.TotalBets
	case SortWinRate:
		return a.WinRate < b.WinRate
	default:
		return a.ROI < b.ROI
	}
}

// LeaderboardEntry is one ranked trader.
type LeaderboardEntry struct {
	Rank   int              `json:"rank"`
	Wallet solana.PublicKey `json:"wallet"`
	Stats  UserStats        `json:"stats"`
}

// LeaderboardSnapshot is a persisted leaderboard build.
type LeaderboardSnapshot struct {
	SnapshotID  string             `json:"snapshotId"`
	SortKey     SortKey            `json:"sortKey"`
	Limit       int                `json:"limit"`
	Digest      string             `json:"digest"`
	TraderCount int                `json:"traderCount"` // distinct users scanned
	FailedCount int                `json:"failedCount"` // users dropped on error
	CreatedAt   int64              `json:"createdAt"`   // unix milliseconds
	Entries     []LeaderboardEntry `json:"entries"`
}
