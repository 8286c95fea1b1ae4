package reporting

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/storage/memory"
)

func wallet(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

var fixedClock = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

func testSnapshot() *domain.LeaderboardSnapshot {
	return &domain.LeaderboardSnapshot{
		SnapshotID:  "snap-1",
		SortKey:     domain.SortROI,
		Limit:       10,
		Digest:      "deadbeef",
		TraderCount: 3,
		FailedCount: 1,
		CreatedAt:   1_700_000_000_000,
		Entries: []domain.LeaderboardEntry{
			{Rank: 1, Wallet: wallet(1), Stats: domain.UserStats{
				TotalBets: 2, ResolvedBets: 1, WonBets: 1,
				TotalWagered: 300, TotalWon: 500, ProfitLoss: 200,
				WinRate: 100, ROI: 66.666666,
			}},
			{Rank: 2, Wallet: wallet(2), Stats: domain.UserStats{
				TotalBets: 1, ResolvedBets: 1, LostBets: 1,
				TotalWagered: 1_500_000_000, ProfitLoss: -1_500_000_000,
				ROI: -100,
			}},
		},
	}
}

func TestGenerator_Latest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	if err := store.Insert(ctx, testSnapshot()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	gen := NewGenerator(store).WithClock(fixedClock)

	report, err := gen.Latest(ctx, domain.SortROI)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if report.SnapshotID != "snap-1" {
		t.Errorf("expected snapshot snap-1, got %s", report.SnapshotID)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.Rows))
	}
	if report.Rows[0].Wallet != wallet(1).String() {
		t.Errorf("unexpected wallet %s", report.Rows[0].Wallet)
	}
	if !report.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("expected fixed clock, got %v", report.GeneratedAt)
	}

	if _, err := gen.Latest(ctx, domain.SortWinRate); err == nil {
		t.Error("expected error for missing sort key snapshot")
	}
}

func TestRenderLeaderboardCSV(t *testing.T) {
	gen := NewGenerator(nil).WithClock(fixedClock)
	csv := RenderLeaderboardCSV(gen.Leaderboard(testSnapshot()))

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "rank,wallet,") {
		t.Errorf("unexpected header: %s", lines[0])
	}

	want := "1," + wallet(1).String() + ",2,1,1,0,300,500,200,100.000000,66.666666"
	if lines[1] != want {
		t.Errorf("row mismatch\n got: %s\nwant: %s", lines[1], want)
	}
	if !strings.Contains(lines[2], ",-1500000000,") {
		t.Errorf("expected negative profit in row: %s", lines[2])
	}
}

func TestRenderLeaderboardMarkdown(t *testing.T) {
	gen := NewGenerator(nil).WithClock(fixedClock)
	md := RenderLeaderboardMarkdown(gen.Leaderboard(testSnapshot()))

	for _, want := range []string{
		"# Leaderboard: roi",
		"Generated: 2024-01-02T03:04:05Z",
		"| Traders Scanned | 3 |",
		"| Traders Ranked | 2 |",
		"| Traders Dropped | 1 |",
		"`deadbeef`",
		"| 2 | " + wallet(2).String() + " | 1 | 1 | 0 | 1 | 1.500000000 | 0.000000000 | -1.500000000 | 0.00 | -100.00 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderLeaderboardMarkdown_Empty(t *testing.T) {
	snap := testSnapshot()
	snap.Entries = nil

	md := RenderLeaderboardMarkdown(NewGenerator(nil).Leaderboard(snap))
	if !strings.Contains(md, "No ranked traders.") {
		t.Error("expected empty-state message")
	}
}

func TestRenderUserStatsMarkdown(t *testing.T) {
	market := &domain.Market{Address: wallet(9), Question: "Will it | rain?", Resolved: true, WinningOutcome: true}
	positions := []domain.Position{
		{
			Bet:      &domain.Bet{Market: wallet(9), Amount: 250_000_000, Outcome: true, Timestamp: 1_700_000_000},
			Market:   market,
			Winnings: domain.WinningsResult{HasWinnings: true, CanClaim: true, PayoutAmount: 500_000_000, Reason: domain.ReasonClaimable},
		},
		{
			Bet:      &domain.Bet{Market: wallet(8), Amount: 1, Outcome: false, Timestamp: 1_600_000_000},
			Winnings: domain.Ineligible(domain.ReasonMarketMissing),
		},
	}
	stats := domain.UserStats{TotalBets: 2, ActiveBets: 1, ResolvedBets: 1, WonBets: 1, TotalWagered: 250_000_001, TotalWon: 500_000_000, UnclaimedWinnings: 500_000_000, WinRate: 100, ProfitLoss: 249_999_999, ROI: 99.99}

	gen := NewGenerator(nil).WithClock(fixedClock)
	md := RenderUserStatsMarkdown(gen.User(wallet(3), stats, positions))

	for _, want := range []string{
		"# Trader " + wallet(3).String(),
		"| Profit/Loss (SOL) | 0.249999999 |",
		"| Win Rate % | 100.00 |",
		`Will it \| rain?`,
		"| YES | 0.250000000 | CLAIMABLE | 0.500000000 |",
		wallet(8).String(),
		"MARKET_MISSING",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestFormatSOL(t *testing.T) {
	tests := []struct {
		lamports uint64
		want     string
	}{
		{0, "0.000000000"},
		{1, "0.000000001"},
		{1_000_000_000, "1.000000000"},
		{math.MaxUint64, "18446744073.709551615"},
	}
	for _, tt := range tests {
		if got := FormatSOL(tt.lamports); got != tt.want {
			t.Errorf("FormatSOL(%d) = %s, want %s", tt.lamports, got, tt.want)
		}
	}

	if got := formatSignedSOL(math.MinInt64); got != "-9223372036.854775808" {
		t.Errorf("formatSignedSOL(MinInt64) = %s", got)
	}
	if got := formatSignedSOL(-5); got != "-0.000000005" {
		t.Errorf("formatSignedSOL(-5) = %s", got)
	}
}
