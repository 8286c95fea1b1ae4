package domain

import "prediction-market-lab/internal/solana"

// Bet is a decoded bet account. Outcome true is the YES side.
type Bet struct {
	Address   solana.PublicKey `json:"address"`
	User      solana.PublicKey `json:"user"`
	Market    solana.PublicKey `json:"market"`
	Amount    uint64           `json:"amount"`
	Outcome   bool             `json:"outcome"`
	Claimed   bool             `json:"claimed"`
	Timestamp int64            `json:"timestamp"` // unix seconds
}

// MarketIndex maps market address to decoded market.
type MarketIndex map[solana.PublicKey]*Market

// IndexMarkets builds a MarketIndex, skipping nil entries.
func IndexMarkets(markets []*Market) MarketIndex {
	idx := make(MarketIndex, len(markets))
	for _, m := range markets {
		if m != nil {
			idx[m.Address] = m
		}
	}
	return idx
}

// MarketAddresses returns the distinct market keys referenced by bets, in first-seen order.
func MarketAddresses(bets []*Bet) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{}, len(bets))
	out := make([]solana.PublicKey, 0, len(bets))
	for _, b := range bets {
		if _, ok := seen[b.Market]; ok {
			continue
		}
		seen[b.Market] = struct{}{}
		out = append(out, b.Market)
	}
	return out
}
