package domain

// UserStats summarises a user's bet history joined with market state.
type UserStats struct {
	TotalBets         int     `json:"totalBets"`
	ActiveBets        int     `json:"activeBets"`
	ResolvedBets      int     `json:"resolvedBets"`
	WonBets           int     `json:"wonBets"`
	LostBets          int     `json:"lostBets"`
	TotalWagered      uint64  `json:"totalWagered"`
	TotalWon          uint64  `json:"totalWon"`
	TotalClaimed      uint64  `json:"totalClaimed"`
	UnclaimedWinnings uint64  `json:"unclaimedWinnings"`
	WinRate           float64 `json:"winRate"`    // percent
	ProfitLoss        int64   `json:"profitLoss"` // TotalWon - TotalWagered
	ROI               float64 `json:"roi"`        // percent
}

// Position is a bet joined with its market and current settlement view.
// Market is nil when the referenced account could not be found.
type Position struct {
	Bet      *Bet           `json:"bet"`
	Market   *Market        `json:"market,omitempty"`
	Winnings WinningsResult `json:"winnings"`
}
