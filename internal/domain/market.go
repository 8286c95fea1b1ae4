package domain

import "prediction-market-lab/internal/solana"

// Market is a decoded prediction market account.
// WinningOutcome is meaningful only when Resolved is true.
type Market struct {
	Address        solana.PublicKey `json:"address"`
	Authority      solana.PublicKey `json:"authority"`
	Question       string           `json:"question"`
	Description    string           `json:"description"`
	EndTime        int64            `json:"endTime"`   // unix seconds
	CreatedAt      int64            `json:"createdAt"` // unix seconds
	TotalYesAmount uint64           `json:"totalYesAmount"`
	TotalNoAmount  uint64           `json:"totalNoAmount"`
	Resolved       bool             `json:"resolved"`
	WinningOutcome bool             `json:"winningOutcome"`
}

// MarketStatus is the lifecycle state of a market at a point in time.
type MarketStatus string

const (
	MarketStatusOpen     MarketStatus = "OPEN"
	MarketStatusClosed   MarketStatus = "CLOSED" // past end time, awaiting resolution
	MarketStatusResolved MarketStatus = "RESOLVED"
)

// Status returns the market state at unix time now.
func (m *Market) Status(now int64) MarketStatus {
	switch {
	case m.Resolved:
		return MarketStatusResolved
	case now >= m.EndTime:
		return MarketStatusClosed
	default:
		return MarketStatusOpen
	}
}

// Pool returns the amount staked on the given outcome.
func (m *Market) Pool(outcome bool) uint64 {
	if outcome {
		return m.TotalYesAmount
	}
	return m.TotalNoAmount
}

// WinningPool returns the pool of the winning side.
// The second value is false while the market is unresolved.
func (m *Market) WinningPool() (uint64, bool) {
	if !m.Resolved {
		return 0, false
	}
	return m.Pool(m.WinningOutcome), true
}

// OutcomeLabel renders a bet side.
func OutcomeLabel(outcome bool) string {
	if outcome {
		return "YES"
	}
	return "NO"
}
