package stats

import (
	"context"
	"fmt"
	"sort"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/settlement"
	"prediction-market-lab/internal/solana"
)

// HistorySource returns a user's bets and the markets they reference.
type HistorySource interface {
	UserHistory(ctx context.Context, wallet solana.PublicKey) ([]*domain.Bet, domain.MarketIndex, error)
}

// Service serves per-user statistics from ledger state.
type Service struct {
	source HistorySource
}

// NewService creates a stats service.
func NewService(source HistorySource) *Service {
	return &Service{source: source}
}

// UserStats fetches the wallet's history and aggregates it.
func (s *Service) UserStats(ctx context.Context, wallet solana.PublicKey) (domain.UserStats, error) {
	bets, markets, err := s.source.UserHistory(ctx, wallet)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("user history %s: %w", wallet, err)
	}
	return Aggregate(bets, markets), nil
}

// UserPositions returns each bet with its market and current settlement view,
// newest first.
func (s *Service) UserPositions(ctx context.Context, wallet solana.PublicKey) ([]domain.Position, error) {
	bets, markets, err := s.source.UserHistory(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("user history %s: %w", wallet, err)
	}
	return Positions(bets, markets), nil
}

// Positions joins bets with markets, newest first. Ties keep input order.
func Positions(bets []*domain.Bet, markets domain.MarketIndex) []domain.Position {
	out := make([]domain.Position, 0, len(bets))
	for _, bet := range bets {
		if bet == nil {
			continue
		}
		market := markets[bet.Market]
		out = append(out, domain.Position{
			Bet:      bet,
			Market:   market,
			Winnings: settlement.ComputeWinnings(bet, market),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Bet.Timestamp > out[j].Bet.Timestamp
	})
	return out
}
