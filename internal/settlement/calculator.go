// Package settlement implements pari-mutuel payout rules.
//
// All payout arithmetic is exact integer math floored the same way the
// program settles claims; floats appear only in the reported multiplier.
package settlement

import (
	"math/big"

	"prediction-market-lab/internal/domain"
)

// ComputeWinnings evaluates a bet against a market snapshot.
// Rules are applied in order and the first match decides:
// unresolved, lost, already claimed, empty winning pool, claimable.
// The result must be recomputed per query; it is never cached.
func ComputeWinnings(bet *domain.Bet, market *domain.Market) domain.WinningsResult {
	if bet == nil || market == nil {
		return domain.Ineligible(domain.ReasonMarketMissing)
	}
	if !market.Resolved {
		return domain.Ineligible(domain.ReasonUnresolved)
	}
	if bet.Outcome != market.WinningOutcome {
		return domain.Ineligible(domain.ReasonLost)
	}
	if bet.Claimed {
		return domain.WinningsResult{HasWinnings: true, Reason: domain.ReasonClaimed}
	}

	payout, ok := grossPayout(bet.Amount, market.Pool(market.WinningOutcome), market)
	if !ok {
		return domain.Ineligible(reasonFor(bet.Amount, market))
	}

	return domain.WinningsResult{
		HasWinnings:  true,
		CanClaim:     true,
		PayoutAmount: payout,
		Multiplier:   Multiplier(payout, bet.Amount),
		Reason:       domain.ReasonClaimable,
	}
}

// Payout returns floor(amount * (yes+no) / winningPool) for a stake on outcome
// in a resolved market, ignoring claim state. ok is false when the market is
// unresolved, the outcome lost, the pool or stake is zero, or the result does
// not fit in uint64.
func Payout(amount uint64, outcome bool, market *domain.Market) (uint64, bool) {
	if market == nil || !market.Resolved || outcome != market.WinningOutcome {
		return 0, false
	}
	return grossPayout(amount, market.Pool(market.WinningOutcome), market)
}

// Multiplier returns payout/amount, or 0 for a zero stake.
func Multiplier(payout, amount uint64) float64 {
	if amount == 0 {
		return 0
	}
	return float64(payout) / float64(amount)
}

func grossPayout(amount, winningPool uint64, market *domain.Market) (uint64, bool) {
	if winningPool == 0 || amount == 0 {
		return 0, false
	}
	q := mulDiv(amount, totalPool(market), winningPool)
	if !q.IsUint64() {
		return 0, false
	}
	return q.Uint64(), true
}

func reasonFor(amount uint64, market *domain.Market) domain.Reason {
	if amount == 0 || market.Pool(market.WinningOutcome) == 0 {
		return domain.ReasonEmptyPool
	}
	return domain.ReasonOverflow
}

// totalPool returns yes+no without overflowing uint64.
func totalPool(m *domain.Market) *big.Int {
	total := new(big.Int).SetUint64(m.TotalYesAmount)
	return total.Add(total, new(big.Int).SetUint64(m.TotalNoAmount))
}

// mulDiv computes floor(a*b/d) for d > 0.
func mulDiv(a uint64, b *big.Int, d uint64) *big.Int {
	n := new(big.Int).SetUint64(a)
	n.Mul(n, b)
	return n.Quo(n, new(big.Int).SetUint64(d))
}
