package domain

// Reason explains a settlement decision.
type Reason string

const (
	ReasonClaimable     Reason = "CLAIMABLE"
	ReasonUnresolved    Reason = "UNRESOLVED"
	ReasonLost          Reason = "LOST"
	ReasonClaimed       Reason = "CLAIMED"
	ReasonEmptyPool     Reason = "EMPTY_POOL"
	ReasonMarketMissing Reason = "MARKET_MISSING"
	ReasonOverflow      Reason = "OVERFLOW"
)

// WinningsResult is the settlement view of one bet against a market snapshot.
// It is derived on every query and never persisted.
type WinningsResult struct {
	HasWinnings  bool    `json:"hasWinnings"`
	CanClaim     bool    `json:"canClaim"`
	PayoutAmount uint64  `json:"payoutAmount"`
	Multiplier   float64 `json:"multiplier"`
	Reason       Reason  `json:"reason"`
}

// Ineligible returns a zero result with the given reason.
func Ineligible(reason Reason) WinningsResult {
	return WinningsResult{Reason: reason}
}
