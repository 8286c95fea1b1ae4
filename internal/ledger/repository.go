// Package ledger reads and decodes prediction market program accounts.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"prediction-market-lab/internal/codec"
	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/solana"
)

// ErrNotFound is returned when an account is missing, owned by another
// program, or cannot be decoded as the requested type.
var ErrNotFound = errors.New("ledger: account not found")

// AccountFetcher is the raw account source.
// Implemented by *solana.HTTPClient, the Redis account cache and stub.RPCClient.
type AccountFetcher interface {
	GetProgramAccounts(ctx context.Context, programID solana.PublicKey, filters ...solana.Filter) ([]solana.KeyedAccount, error)
	GetAccountInfo(ctx context.Context, address solana.PublicKey) (*solana.AccountInfo, error)
	GetMultipleAccounts(ctx context.Context, addresses []solana.PublicKey) ([]*solana.AccountInfo, error)
}

// Repository decodes program accounts into domain records.
// Undecodable accounts are skipped, logged at debug and counted.
type Repository struct {
	fetcher   AccountFetcher
	programID solana.PublicKey
	logger    *zap.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// NewRepository creates a repository for accounts owned by programID.
func NewRepository(fetcher AccountFetcher, programID solana.PublicKey, opts ...Option) *Repository {
	r := &Repository{
		fetcher:   fetcher,
		programID: programID,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("ledger")
	return r
}

// ProgramID returns the program whose accounts are read.
func (r *Repository) ProgramID() solana.PublicKey {
	return r.programID
}

// ScanBets returns every decodable bet account owned by the program.
func (r *Repository) ScanBets(ctx context.Context) ([]*domain.Bet, error) {
	return r.scanBets(ctx)
}

// BetsByUser returns the bets placed by wallet.
func (r *Repository) BetsByUser(ctx context.Context, wallet solana.PublicKey) ([]*domain.Bet, error) {
	return r.scanBets(ctx, solana.Memcmp(codec.BetUserOffset, wallet.Bytes()))
}

// BetsByMarket returns the bets placed on a market.
func (r *Repository) BetsByMarket(ctx context.Context, market solana.PublicKey) ([]*domain.Bet, error) {
	return r.scanBets(ctx, solana.Memcmp(codec.BetMarketOffset, market.Bytes()))
}

func (r *Repository) scanBets(ctx context.Context, extra ...solana.Filter) ([]*domain.Bet, error) {
	filters := append([]solana.Filter{solana.Memcmp(0, codec.BetDiscriminator.Bytes())}, extra...)
	accounts, err := r.fetcher.GetProgramAccounts(ctx, r.programID, filters...)
	if err != nil {
		return nil, fmt.Errorf("scan bets: %w", err)
	}

	bets := make([]*domain.Bet, 0, len(accounts))
	for _, acc := range accounts {
		bet, err := codec.DecodeBet(acc.Account.Data, acc.Address)
		if err != nil {
			r.skipped(codec.KindBet, acc.Address, err)
			continue
		}
		observability.RecordDecoded(codec.KindBet.String())
		bets = append(bets, bet)
	}
	return bets, nil
}

// ScanMarkets returns every decodable market account owned by the program.
func (r *Repository) ScanMarkets(ctx context.Context) ([]*domain.Market, error) {
	filter := solana.Memcmp(0, codec.MarketDiscriminator.Bytes())
	accounts, err := r.fetcher.GetProgramAccounts(ctx, r.programID, filter)
	if err != nil {
		return nil, fmt.Errorf("scan markets: %w", err)
	}

	markets := make([]*domain.Market, 0, len(accounts))
	for _, acc := range accounts {
		m, err := codec.DecodeMarket(acc.Account.Data, acc.Address)
		if err != nil {
			r.skipped(codec.KindMarket, acc.Address, err)
			continue
		}
		observability.RecordDecoded(codec.KindMarket.String())
		markets = append(markets, m)
	}
	return markets, nil
}

// Market fetches and decodes one market.
func (r *Repository) Market(ctx context.Context, address solana.PublicKey) (*domain.Market, error) {
	info, err := r.owned(ctx, address)
	if err != nil {
		return nil, err
	}
	m, err := codec.DecodeMarket(info.Data, address)
	if err != nil {
		r.skipped(codec.KindMarket, address, err)
		return nil, fmt.Errorf("%w: market %s: %v", ErrNotFound, address, err)
	}
	return m, nil
}

// Bet fetches and decodes one bet.
func (r *Repository) Bet(ctx context.Context, address solana.PublicKey) (*domain.Bet, error) {
	info, err := r.owned(ctx, address)
	if err != nil {
		return nil, err
	}
	b, err := codec.DecodeBet(info.Data, address)
	if err != nil {
		r.skipped(codec.KindBet, address, err)
		return nil, fmt.Errorf("%w: bet %s: %v", ErrNotFound, address, err)
	}
	return b, nil
}

func (r *Repository) owned(ctx context.Context, address solana.PublicKey) (*solana.AccountInfo, error) {
	info, err := r.fetcher.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	if info.Owner != r.programID {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrNotFound, address, info.Owner)
	}
	return info, nil
}

// Markets fetches the given markets. Missing or undecodable entries are
// absent from the index.
func (r *Repository) Markets(ctx context.Context, addresses []solana.PublicKey) (domain.MarketIndex, error) {
	idx := make(domain.MarketIndex, len(addresses))
	if len(addresses) == 0 {
		return idx, nil
	}

	infos, err := r.fetcher.GetMultipleAccounts(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}

	for i, info := range infos {
		if info == nil || info.Owner != r.programID {
			continue
		}
		m, err := codec.DecodeMarket(info.Data, addresses[i])
		if err != nil {
			r.skipped(codec.KindMarket, addresses[i], err)
			continue
		}
		observability.RecordDecoded(codec.KindMarket.String())
		idx[m.Address] = m
	}
	return idx, nil
}

// UserHistory returns the wallet's bets and the markets they reference.
func (r *Repository) UserHistory(ctx context.Context, wallet solana.PublicKey) ([]*domain.Bet, domain.MarketIndex, error) {
	bets, err := r.BetsByUser(ctx, wallet)
	if err != nil {
		return nil, nil, err
	}
	markets, err := r.Markets(ctx, domain.MarketAddresses(bets))
	if err != nil {
		return nil, nil, err
	}
	return bets, markets, nil
}

func (r *Repository) skipped(kind codec.Kind, address solana.PublicKey, err error) {
	observability.RecordDecodeSkipped(kind.String())
	r.logger.Debug("skipping undecodable account",
		zap.String("kind", kind.String()),
		zap.Stringer("address", address),
		zap.Error(err),
	)
}
