package settlement

import (
	"math/big"

	"prediction-market-lab/internal/domain"
)

// Odds is the pool split of a market at a point in time.
type Odds struct {
	YesPercent    float64 `json:"yesPercent"`
	NoPercent     float64 `json:"noPercent"`
	YesMultiplier float64 `json:"yesMultiplier"` // 0 when the YES pool is empty
	NoMultiplier  float64 `json:"noMultiplier"`  // 0 when the NO pool is empty
	TotalPool     string  `json:"totalPool"`     // decimal, may exceed uint64
}

// ImpliedOdds returns pool percentages and current multipliers.
// An empty market reports 50/50 with zero multipliers.
func ImpliedOdds(m *domain.Market) Odds {
	total := totalPool(m)
	odds := Odds{TotalPool: total.String()}
	if total.Sign() == 0 {
		odds.YesPercent = 50
		odds.NoPercent = 50
		return odds
	}

	totalF, _ := new(big.Float).SetInt(total).Float64()
	odds.YesPercent = float64(m.TotalYesAmount) / totalF * 100
	odds.NoPercent = float64(m.TotalNoAmount) / totalF * 100
	if m.TotalYesAmount > 0 {
		odds.YesMultiplier = totalF / float64(m.TotalYesAmount)
	}
	if m.TotalNoAmount > 0 {
		odds.NoMultiplier = totalF / float64(m.TotalNoAmount)
	}
	return odds
}

// PotentialPayout projects the payout of a new stake on outcome if the market
// resolved in its favour with pools as they are plus the stake.
// ok is false for a zero stake or a result that does not fit in uint64.
func PotentialPayout(m *domain.Market, outcome bool, stake uint64) (uint64, bool) {
	if stake == 0 {
		return 0, false
	}
	side := new(big.Int).SetUint64(m.Pool(outcome))
	side.Add(side, new(big.Int).SetUint64(stake))

	total := totalPool(m)
	total.Add(total, new(big.Int).SetUint64(stake))

	q := new(big.Int).SetUint64(stake)
	q.Mul(q, total)
	q.Quo(q, side)
	if !q.IsUint64() {
		return 0, false
	}
	return q.Uint64(), true
}
