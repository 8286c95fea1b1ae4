package reporting

import (
	"fmt"
	"strings"
)

// RenderLeaderboardCSV renders leaderboard rows as CSV string.
// Amounts are raw lamports so the file round-trips exactly.
func RenderLeaderboardCSV(r *LeaderboardReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("rank,wallet,total_bets,resolved_bets,won_bets,lost_bets,")
	sb.WriteString("total_wagered,total_won,profit_loss,win_rate,roi\n")

	// Rows
	for _, row := range r.Rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%d,%d,%d,%d,%d,%d,%d,%.6f,%.6f\n",
			row.Rank,
			row.Wallet,
			row.TotalBets,
			row.ResolvedBets,
			row.WonBets,
			row.LostBets,
			row.TotalWagered,
			row.TotalWon,
			row.ProfitLoss,
			row.WinRate,
			row.ROI,
		))
	}

	return sb.String()
}
