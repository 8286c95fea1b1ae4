package reporting

import (
	"fmt"
	"strings"
	"time"

	"prediction-market-lab/internal/domain"
)

const lamportsPerSOL = 1_000_000_000

// FormatSOL renders lamports as SOL with nine decimals.
func FormatSOL(lamports uint64) string {
	return fmt.Sprintf("%d.%09d", lamports/lamportsPerSOL, lamports%lamportsPerSOL)
}

// formatSignedSOL renders a signed lamport amount as SOL.
func formatSignedSOL(lamports int64) string {
	if lamports < 0 {
		// Negate in uint64 so MinInt64 stays exact.
		return "-" + FormatSOL(uint64(-(lamports + 1))+1)
	}
	return FormatSOL(uint64(lamports))
}

// RenderLeaderboardMarkdown renders a leaderboard report as Markdown string.
func RenderLeaderboardMarkdown(r *LeaderboardReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Leaderboard: %s\n\n", r.SortKey))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	if r.SnapshotID != "" {
		sb.WriteString(fmt.Sprintf("| Snapshot | %s |\n", r.SnapshotID))
	}
	sb.WriteString(fmt.Sprintf("| Built At (ms) | %d |\n", r.BuiltAt))
	sb.WriteString(fmt.Sprintf("| Traders Scanned | %d |\n", r.TraderCount))
	sb.WriteString(fmt.Sprintf("| Traders Ranked | %d |\n", len(r.Rows)))
	sb.WriteString(fmt.Sprintf("| Traders Dropped | %d |\n", r.FailedCount))
	sb.WriteString(fmt.Sprintf("| Digest | `%s` |\n", r.Digest))
	sb.WriteString("\n")

	// Rankings
	sb.WriteString("## Rankings\n\n")
	if len(r.Rows) > 0 {
		sb.WriteString("| Rank | Wallet | Bets | Resolved | Won | Lost | Wagered (SOL) | Won (SOL) | P/L (SOL) | WinRate % | ROI % |\n")
		sb.WriteString("|------|--------|------|----------|-----|------|---------------|-----------|-----------|-----------|-------|\n")
		for _, row := range r.Rows {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %d | %d | %s | %s | %s | %.2f | %.2f |\n",
				row.Rank, row.Wallet,
				row.TotalBets, row.ResolvedBets, row.WonBets, row.LostBets,
				FormatSOL(row.TotalWagered), FormatSOL(row.TotalWon), formatSignedSOL(row.ProfitLoss),
				row.WinRate, row.ROI))
		}
	} else {
		sb.WriteString("No ranked traders.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderUserStatsMarkdown renders a wallet's stats and positions as Markdown string.
func RenderUserStatsMarkdown(r *UserReport) string {
	var sb strings.Builder
	st := r.Stats

	sb.WriteString(fmt.Sprintf("# Trader %s\n\n", r.Wallet))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Stats
	sb.WriteString("## Stats\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Bets | %d |\n", st.TotalBets))
	sb.WriteString(fmt.Sprintf("| Active Bets | %d |\n", st.ActiveBets))
	sb.WriteString(fmt.Sprintf("| Resolved Bets | %d |\n", st.ResolvedBets))
	sb.WriteString(fmt.Sprintf("| Won / Lost | %d / %d |\n", st.WonBets, st.LostBets))
	sb.WriteString(fmt.Sprintf("| Total Wagered (SOL) | %s |\n", FormatSOL(st.TotalWagered)))
	sb.WriteString(fmt.Sprintf("| Total Won (SOL) | %s |\n", FormatSOL(st.TotalWon)))
	sb.WriteString(fmt.Sprintf("| Claimed (SOL) | %s |\n", FormatSOL(st.TotalClaimed)))
	sb.WriteString(fmt.Sprintf("| Unclaimed (SOL) | %s |\n", FormatSOL(st.UnclaimedWinnings)))
	sb.WriteString(fmt.Sprintf("| Profit/Loss (SOL) | %s |\n", formatSignedSOL(st.ProfitLoss)))
	sb.WriteString(fmt.Sprintf("| Win Rate %% | %.2f |\n", st.WinRate))
	sb.WriteString(fmt.Sprintf("| ROI %% | %.2f |\n", st.ROI))
	sb.WriteString("\n")

	// Positions
	sb.WriteString("## Positions\n\n")
	if len(r.Positions) > 0 {
		sb.WriteString("| Placed | Market | Side | Stake (SOL) | Status | Payout (SOL) |\n")
		sb.WriteString("|--------|--------|------|-------------|--------|--------------|\n")
		for _, p := range r.Positions {
			question := p.Bet.Market.String()
			if p.Market != nil {
				question = escapeCell(p.Market.Question)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				time.Unix(p.Bet.Timestamp, 0).UTC().Format(time.RFC3339),
				question,
				domain.OutcomeLabel(p.Bet.Outcome),
				FormatSOL(p.Bet.Amount),
				p.Winnings.Reason,
				FormatSOL(p.Winnings.PayoutAmount)))
		}
	} else {
		sb.WriteString("No positions.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// escapeCell keeps user text from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
