package codec

import "prediction-market-lab/internal/domain"

// EncodeMarket serialises a market in account layout. The address is not encoded.
func EncodeMarket(m *domain.Market) []byte {
	w := NewWriter(DiscriminatorLength + 32 + 8 + len(m.Question) + len(m.Description) + 34)
	w.WriteBytes(MarketDiscriminator[:])
	w.WriteFixedKey(m.Authority)
	w.WriteLengthPrefixedString(m.Question)
	w.WriteLengthPrefixedString(m.Description)
	w.WriteI64LE(m.EndTime)
	w.WriteI64LE(m.CreatedAt)
	w.WriteU64LE(m.TotalYesAmount)
	w.WriteU64LE(m.TotalNoAmount)
	w.WriteBool(m.Resolved)
	w.WriteBool(m.WinningOutcome)
	return w.Bytes()
}

// EncodeBet serialises a bet in account layout. The address is not encoded.
func EncodeBet(b *domain.Bet) []byte {
	w := NewWriter(BetAccountSize)
	w.WriteBytes(BetDiscriminator[:])
	w.WriteFixedKey(b.User)
	w.WriteFixedKey(b.Market)
	w.WriteU64LE(b.Amount)
	w.WriteBool(b.Outcome)
	w.WriteBool(b.Claimed)
	w.WriteI64LE(b.Timestamp)
	return w.Bytes()
}
