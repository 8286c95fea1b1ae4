package stats

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/solana"
)

func key(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

var (
	marketA = &domain.Market{Address: key(1), TotalYesAmount: 600, TotalNoAmount: 400, Resolved: true, WinningOutcome: true}
	marketB = &domain.Market{Address: key(2), TotalYesAmount: 100, TotalNoAmount: 100}
)

func TestAggregate_Mixed(t *testing.T) {
	bets := []*domain.Bet{
		{Market: key(1), Amount: 300, Outcome: true},               // claimable 500
		{Market: key(1), Amount: 60, Outcome: true, Claimed: true}, // claimed 100
		{Market: key(1), Amount: 200, Outcome: false},              // lost
		{Market: key(2), Amount: 50, Outcome: true},                // unresolved
		{Market: key(9), Amount: 40, Outcome: true},                // market missing
	}
	markets := domain.IndexMarkets([]*domain.Market{marketA, marketB})

	s := Aggregate(bets, markets)

	assert.Equal(t, 5, s.TotalBets)
	assert.Equal(t, 2, s.ActiveBets)
	assert.Equal(t, 3, s.ResolvedBets)
	assert.Equal(t, 2, s.WonBets)
	assert.Equal(t, 1, s.LostBets)
	assert.Equal(t, uint64(650), s.TotalWagered)
	assert.Equal(t, uint64(100), s.TotalClaimed)
	assert.Equal(t, uint64(500), s.UnclaimedWinnings)
	assert.Equal(t, uint64(600), s.TotalWon)
	assert.Equal(t, int64(-50), s.ProfitLoss)
	assert.InDelta(t, 66.667, s.WinRate, 0.001)
	assert.InDelta(t, -7.692, s.ROI, 0.001)
}

func TestAggregate_ZeroGuards(t *testing.T) {
	s := Aggregate(nil, nil)
	assert.Equal(t, domain.UserStats{}, s)

	// only unresolved bets: resolvedBets == 0
	s = Aggregate([]*domain.Bet{{Market: key(2), Amount: 10}}, domain.IndexMarkets([]*domain.Market{marketB}))
	assert.Equal(t, 0, s.ResolvedBets)
	assert.Equal(t, 0.0, s.WinRate)
	assert.False(t, math.IsNaN(s.ROI))
	assert.Equal(t, 0.0, s.ROI)
	assert.Equal(t, int64(-10), s.ProfitLoss, "profit/loss still reflects open stakes")

	// missing market: also no track record
	s = Aggregate([]*domain.Bet{{Market: key(9), Amount: 25}}, nil)
	assert.Equal(t, 0, s.ResolvedBets)
	assert.Equal(t, 0.0, s.ROI)
	assert.Equal(t, 0.0, s.WinRate)

	// zero-amount bet: totalWagered == 0
	s = Aggregate([]*domain.Bet{{Market: key(1), Amount: 0, Outcome: false}}, domain.IndexMarkets([]*domain.Market{marketA}))
	assert.Equal(t, 0.0, s.ROI)
	assert.Equal(t, 0.0, s.WinRate)
}

func TestAggregate_Saturates(t *testing.T) {
	bets := []*domain.Bet{
		{Market: key(2), Amount: math.MaxUint64},
		{Market: key(2), Amount: math.MaxUint64},
	}
	s := Aggregate(bets, domain.IndexMarkets([]*domain.Market{marketB}))
	assert.Equal(t, uint64(math.MaxUint64), s.TotalWagered)
	assert.Equal(t, int64(math.MinInt64), s.ProfitLoss)
}

type fakeSource struct {
	bets    []*domain.Bet
	markets domain.MarketIndex
	err     error
}

func (f *fakeSource) UserHistory(_ context.Context, _ solana.PublicKey) ([]*domain.Bet, domain.MarketIndex, error) {
	return f.bets, f.markets, f.err
}

func TestService_UserStats(t *testing.T) {
	src := &fakeSource{
		bets:    []*domain.Bet{{Market: key(1), Amount: 300, Outcome: true}},
		markets: domain.IndexMarkets([]*domain.Market{marketA}),
	}
	svc := NewService(src)

	s, err := svc.UserStats(context.Background(), key(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), s.TotalWon)
	assert.Equal(t, 100.0, s.WinRate)

	src.err = errors.New("rpc down")
	_, err = svc.UserStats(context.Background(), key(5))
	assert.ErrorIs(t, err, src.err)
}

func TestService_UserPositions_NewestFirst(t *testing.T) {
	src := &fakeSource{
		bets: []*domain.Bet{
			{Address: key(10), Market: key(1), Amount: 300, Outcome: true, Timestamp: 100},
			{Address: key(11), Market: key(9), Amount: 5, Timestamp: 300},
			{Address: key(12), Market: key(1), Amount: 200, Outcome: false, Timestamp: 200},
		},
		markets: domain.IndexMarkets([]*domain.Market{marketA}),
	}

	positions, err := NewService(src).UserPositions(context.Background(), key(5))
	require.NoError(t, err)
	require.Len(t, positions, 3)

	assert.Equal(t, key(11), positions[0].Bet.Address)
	assert.Nil(t, positions[0].Market)
	assert.Equal(t, domain.ReasonMarketMissing, positions[0].Winnings.Reason)

	assert.Equal(t, key(12), positions[1].Bet.Address)
	assert.Equal(t, domain.ReasonLost, positions[1].Winnings.Reason)

	assert.Equal(t, key(10), positions[2].Bet.Address)
	assert.True(t, positions[2].Winnings.CanClaim)
}
