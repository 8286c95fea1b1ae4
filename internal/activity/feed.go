package activity

import (
	"context"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/solana"
)

// Source is the ledger view the feed reads from.
type Source interface {
	ScanBets(ctx context.Context) ([]*domain.Bet, error)
	ScanMarkets(ctx context.Context) ([]*domain.Market, error)
	BetsByUser(ctx context.Context, wallet solana.PublicKey) ([]*domain.Bet, error)
	Markets(ctx context.Context, addresses []solana.PublicKey) (domain.MarketIndex, error)
}

// Feed serves recent activity from ledger state.
type Feed struct {
	source Source
}

// NewFeed creates a feed.
func NewFeed(source Source) *Feed {
	return &Feed{source: source}
}

// Recent returns the newest program-wide events.
func (f *Feed) Recent(ctx context.Context, limit int) ([]Event, error) {
	markets, err := f.source.ScanMarkets(ctx)
	if err != nil {
		return nil, err
	}
	bets, err := f.source.ScanBets(ctx)
	if err != nil {
		return nil, err
	}
	return Merge(FromBets(bets, domain.IndexMarkets(markets)), FromMarkets(markets), limit), nil
}

// UserRecent returns the newest bet events of one wallet.
func (f *Feed) UserRecent(ctx context.Context, wallet solana.PublicKey, limit int) ([]Event, error) {
	bets, err := f.source.BetsByUser(ctx, wallet)
	if err != nil {
		return nil, err
	}
	markets, err := f.source.Markets(ctx, domain.MarketAddresses(bets))
	if err != nil {
		return nil, err
	}
	return Merge(FromBets(bets, markets), nil, limit), nil
}
