package codec

import (
	"bytes"
	"errors"
	"fmt"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/solana"
)

var (
	// ErrDiscriminatorMismatch is returned when the account tag is not the expected one.
	ErrDiscriminatorMismatch = errors.New("codec: discriminator mismatch")
	// ErrUnknownAccount is returned by Decode for an unrecognised tag.
	ErrUnknownAccount = errors.New("codec: unknown account type")
)

// Kind tags a decoded Record.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMarket
	KindBet
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindMarket:
		return "market"
	case KindBet:
		return "bet"
	default:
		return "unknown"
	}
}

// Record is a tagged decode result. Exactly one of Market or Bet is set,
// matching Kind.
type Record struct {
	Kind   Kind
	Market *domain.Market
	Bet    *domain.Bet
}

// Decode identifies the account type by discriminator and decodes it.
func Decode(data []byte, address solana.PublicKey) (Record, error) {
	if len(data) < DiscriminatorLength {
		return Record{}, fmt.Errorf("%w: %d bytes, need discriminator", ErrTruncated, len(data))
	}

	var tag Discriminator
	copy(tag[:], data[:DiscriminatorLength])

	switch tag {
	case MarketDiscriminator:
		m, err := DecodeMarket(data, address)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindMarket, Market: m}, nil
	case BetDiscriminator:
		b, err := DecodeBet(data, address)
		if err != nil {
			return Record{}, err
		}
		return Record{Kind: KindBet, Bet: b}, nil
	default:
		return Record{}, fmt.Errorf("%w: %s", ErrUnknownAccount, tag)
	}
}

// checkDiscriminator consumes the tag and verifies it.
func checkDiscriminator(r *Reader, want Discriminator) error {
	got, err := r.ReadBytes(DiscriminatorLength)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want[:]) {
		return fmt.Errorf("%w: got %x, want %s", ErrDiscriminatorMismatch, got, want)
	}
	return nil
}

// DecodeMarket decodes a market account. Trailing bytes are ignored.
func DecodeMarket(data []byte, address solana.PublicKey) (*domain.Market, error) {
	r := NewReader(data)
	if err := checkDiscriminator(r, MarketDiscriminator); err != nil {
		return nil, err
	}

	m := &domain.Market{Address: address}
	var err error
	if m.Authority, err = r.ReadFixedKey(); err != nil {
		return nil, fmt.Errorf("market authority: %w", err)
	}
	if m.Question, err = r.ReadLengthPrefixedString(); err != nil {
		return nil, fmt.Errorf("market question: %w", err)
	}
	if m.Description, err = r.ReadLengthPrefixedString(); err != nil {
		return nil, fmt.Errorf("market description: %w", err)
	}
	if m.EndTime, err = r.ReadI64LE(); err != nil {
		return nil, fmt.Errorf("market end time: %w", err)
	}
	if m.CreatedAt, err = r.ReadI64LE(); err != nil {
		return nil, fmt.Errorf("market created at: %w", err)
	}
	if m.TotalYesAmount, err = r.ReadU64LE(); err != nil {
		return nil, fmt.Errorf("market yes amount: %w", err)
	}
	if m.TotalNoAmount, err = r.ReadU64LE(); err != nil {
		return nil, fmt.Errorf("market no amount: %w", err)
	}
	if m.Resolved, err = r.ReadBool(); err != nil {
		return nil, fmt.Errorf("market resolved: %w", err)
	}
	if m.WinningOutcome, err = r.ReadBool(); err != nil {
		return nil, fmt.Errorf("market winning outcome: %w", err)
	}
	return m, nil
}

// DecodeBet decodes a bet account. Trailing bytes are ignored.
func DecodeBet(data []byte, address solana.PublicKey) (*domain.Bet, error) {
	r := NewReader(data)
	if err := checkDiscriminator(r, BetDiscriminator); err != nil {
		return nil, err
	}

	b := &domain.Bet{Address: address}
	var err error
	if b.User, err = r.ReadFixedKey(); err != nil {
		return nil, fmt.Errorf("bet user: %w", err)
	}
	if b.Market, err = r.ReadFixedKey(); err != nil {
		return nil, fmt.Errorf("bet market: %w", err)
	}
	if b.Amount, err = r.ReadU64LE(); err != nil {
		return nil, fmt.Errorf("bet amount: %w", err)
	}
	if b.Outcome, err = r.ReadBool(); err != nil {
		return nil, fmt.Errorf("bet outcome: %w", err)
	}
	if b.Claimed, err = r.ReadBool(); err != nil {
		return nil, fmt.Errorf("bet claimed: %w", err)
	}
	if b.Timestamp, err = r.ReadI64LE(); err != nil {
		return nil, fmt.Errorf("bet timestamp: %w", err)
	}
	return b, nil
}
