package codec

import (
	"crypto/sha256"
	"encoding/hex"
)

// DiscriminatorLength is the size of the account type tag.
const DiscriminatorLength = 8

// Discriminator identifies an account schema.
type Discriminator [DiscriminatorLength]byte

// AccountDiscriminator returns the first 8 bytes of sha256("account:<name>").
func AccountDiscriminator(name string) Discriminator {
	sum := sha256.Sum256([]byte("account:" + name))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorLength])
	return d
}

// Bytes returns the discriminator as a slice, for memcmp filters.
func (d Discriminator) Bytes() []byte {
	b := make([]byte, DiscriminatorLength)
	copy(b, d[:])
	return b
}

// String returns the hex form.
func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

var (
	MarketDiscriminator = AccountDiscriminator("Market")
	BetDiscriminator    = AccountDiscriminator("Bet")
)

// Field offsets used by memcmp scans over bet accounts.
const (
	BetUserOffset   = DiscriminatorLength
	BetMarketOffset = BetUserOffset + 32
	// BetAccountSize is the encoded size of a bet without trailing padding.
	BetAccountSize = BetMarketOffset + 32 + 8 + 1 + 1 + 8
)
