package activity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"prediction-market-lab/internal/codec"
	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/solana"
)

// MarketLookup resolves a market not yet seen on the stream.
type MarketLookup interface {
	Market(ctx context.Context, address solana.PublicKey) (*domain.Market, error)
}

// Watcher turns program account notifications into live events.
//
// The first sighting of an account emits its creation event (BET_PLACED or
// BET_CLAIMED, MARKET_CREATED). Later updates emit only state transitions:
// a bet becoming claimed, a market becoming resolved. Pool changes are silent.
type Watcher struct {
	ws        solana.WSClient
	programID solana.PublicKey
	lookup    MarketLookup
	logger    *zap.Logger
	buffer    int

	// owned by the Run goroutine
	markets  map[solana.PublicKey]*domain.Market // seen on the stream or seeded
	bets     map[solana.PublicKey]*domain.Bet
	lookedUp map[solana.PublicKey]*domain.Market // enrichment only, never counts as seen
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithMarketLookup enriches bets on markets not seen on the stream.
func WithMarketLookup(l MarketLookup) WatcherOption {
	return func(w *Watcher) {
		w.lookup = l
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithSeed marks accounts as already known so their next update reports only
// transitions.
func WithSeed(markets []*domain.Market, bets []*domain.Bet) WatcherOption {
	return func(w *Watcher) {
		for _, m := range markets {
			w.markets[m.Address] = m
		}
		for _, b := range bets {
			w.bets[b.Address] = b
		}
	}
}

// NewWatcher creates a watcher for programID.
func NewWatcher(ws solana.WSClient, programID solana.PublicKey, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		ws:        ws,
		programID: programID,
		logger:    zap.NewNop(),
		buffer:    256,
		markets:   make(map[solana.PublicKey]*domain.Market),
		bets:      make(map[solana.PublicKey]*domain.Bet),
		lookedUp:  make(map[solana.PublicKey]*domain.Market),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("watcher")
	return w
}

// Run subscribes to program accounts and streams events until ctx is done or
// the subscription closes. The returned channel is closed on exit.
// Run must be called at most once per Watcher.
func (w *Watcher) Run(ctx context.Context) (<-chan Event, error) {
	notifs, err := w.ws.SubscribeProgram(ctx, solana.ProgramSubscription{ProgramID: w.programID})
	if err != nil {
		return nil, fmt.Errorf("subscribe program %s: %w", w.programID, err)
	}

	out := make(chan Event, w.buffer)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-notifs:
				if !ok {
					w.logger.Info("subscription closed")
					return
				}
				for _, ev := range w.handle(ctx, n) {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func (w *Watcher) handle(ctx context.Context, n solana.AccountNotification) []Event {
	if n.Account.Owner != w.programID {
		return nil
	}

	rec, err := codec.Decode(n.Account.Data, n.Address)
	if err != nil {
		observability.RecordDecodeSkipped(codec.KindUnknown.String())
		w.logger.Debug("skipping undecodable notification",
			zap.Stringer("address", n.Address),
			zap.Int64("slot", n.Slot),
			zap.Error(err),
		)
		return nil
	}

	switch rec.Kind {
	case codec.KindMarket:
		return w.onMarket(rec.Market)
	case codec.KindBet:
		return w.onBet(ctx, rec.Bet)
	default:
		return nil
	}
}

func (w *Watcher) onMarket(m *domain.Market) []Event {
	prev := w.markets[m.Address]
	w.markets[m.Address] = m
	delete(w.lookedUp, m.Address)

	switch {
	case prev == nil && m.Resolved:
		return []Event{MarketCreatedEvent(m), MarketResolvedEvent(m)}
	case prev == nil:
		return []Event{MarketCreatedEvent(m)}
	case !prev.Resolved && m.Resolved:
		return []Event{MarketResolvedEvent(m)}
	default:
		return nil
	}
}

func (w *Watcher) onBet(ctx context.Context, b *domain.Bet) []Event {
	prev := w.bets[b.Address]
	w.bets[b.Address] = b

	switch {
	case prev == nil:
		return []Event{BetEvent(b, w.market(ctx, b.Market))}
	case !prev.Claimed && b.Claimed:
		return []Event{betEvent(EventBetClaimed, b, w.market(ctx, b.Market))}
	default:
		return nil
	}
}

func (w *Watcher) market(ctx context.Context, address solana.PublicKey) *domain.Market {
	if m, ok := w.markets[address]; ok {
		return m
	}
	if m, ok := w.lookedUp[address]; ok {
		return m
	}
	if w.lookup == nil {
		return nil
	}
	m, err := w.lookup.Market(ctx, address)
	if err != nil {
		w.logger.Debug("market lookup failed", zap.Stringer("market", address), zap.Error(err))
		return nil
	}
	w.lookedUp[address] = m
	return m
}
