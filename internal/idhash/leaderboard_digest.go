package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"prediction-market-lab/internal/domain"
)

// ComputeLeaderboardDigest computes a deterministic digest of a ranked leaderboard.
// Formula: SHA256(sort_key, then per entry "wallet|rank|key_value" newline separated)
// Returns hex-encoded hash (64 characters).
func ComputeLeaderboardDigest(sortKey domain.SortKey, entries []domain.LeaderboardEntry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", sortKey)
	for _, e := range entries {
		fmt.Fprintf(h, "%s|%d|%s\n",
			e.Wallet,
			e.Rank,
			strconv.FormatFloat(sortKey.Value(e.Stats), 'g', -1, 64),
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}
