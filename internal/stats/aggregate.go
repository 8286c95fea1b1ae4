// Package stats folds a user's bet history into summary statistics.
package stats

import (
	"math"
	"math/big"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/settlement"
)

// Aggregate computes UserStats over bets joined with markets.
//
// A bet whose market is missing counts toward TotalBets, TotalWagered and
// ActiveBets only. Claimed winning bets contribute their recomputed payout to
// TotalClaimed using current pool totals. WinRate and ROI stay 0 until at
// least one bet has resolved.
func Aggregate(bets []*domain.Bet, markets domain.MarketIndex) domain.UserStats {
	var s domain.UserStats

	for _, bet := range bets {
		if bet == nil {
			continue
		}
		s.TotalBets++
		s.TotalWagered = addSaturating(s.TotalWagered, bet.Amount)

		market := markets[bet.Market]
		if market == nil || !market.Resolved {
			s.ActiveBets++
			continue
		}

		s.ResolvedBets++
		if bet.Outcome != market.WinningOutcome {
			s.LostBets++
			continue
		}
		s.WonBets++

		if bet.Claimed {
			if paid, ok := settlement.Payout(bet.Amount, bet.Outcome, market); ok {
				s.TotalClaimed = addSaturating(s.TotalClaimed, paid)
			}
			continue
		}

		if res := settlement.ComputeWinnings(bet, market); res.CanClaim {
			s.UnclaimedWinnings = addSaturating(s.UnclaimedWinnings, res.PayoutAmount)
		}
	}

	s.TotalWon = addSaturating(s.TotalClaimed, s.UnclaimedWinnings)
	s.ProfitLoss = profitLoss(s.TotalWon, s.TotalWagered)
	s.WinRate = percent(float64(s.WonBets), float64(s.ResolvedBets))
	// ROI is 0 without a track record, like WinRate.
	if s.ResolvedBets > 0 {
		s.ROI = percent(float64(s.ProfitLoss), float64(s.TotalWagered))
	}

	return s
}

// percent returns num/den*100, or 0 when den is 0.
func percent(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}

func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// profitLoss returns won-wagered clamped to the int64 range.
func profitLoss(won, wagered uint64) int64 {
	d := new(big.Int).SetUint64(won)
	d.Sub(d, new(big.Int).SetUint64(wagered))
	switch {
	case d.IsInt64():
		return d.Int64()
	case d.Sign() > 0:
		return math.MaxInt64
	default:
		return math.MinInt64
	}
}
