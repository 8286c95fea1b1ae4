// Package activity builds a time-ordered feed of bet and market events.
package activity

import (
	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/idhash"
	"prediction-market-lab/internal/settlement"
)

// EventType tags an Event and selects its payload shape.
type EventType string

const (
	EventBetPlaced      EventType = "BET_PLACED"      // BetPayload
	EventBetClaimed     EventType = "BET_CLAIMED"     // BetPayload
	EventMarketCreated  EventType = "MARKET_CREATED"  // MarketPayload
	EventMarketResolved EventType = "MARKET_RESOLVED" // MarketPayload
)

// Event is one feed item. Check Type (or type-switch Payload) before reading
// the payload.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // unix seconds
	Payload   Payload   `json:"payload"`
}

// Payload is implemented by BetPayload and MarketPayload only.
type Payload interface {
	payload()
}

// BetPayload describes a bet with its market context.
type BetPayload struct {
	Bet            *domain.Bet           `json:"bet"`
	MarketQuestion string                `json:"marketQuestion,omitempty"`
	Winnings       domain.WinningsResult `json:"winnings"`
}

// MarketPayload describes a market with its current odds.
type MarketPayload struct {
	Market *domain.Market  `json:"market"`
	Odds   settlement.Odds `json:"odds"`
}

func (BetPayload) payload()    {}
func (MarketPayload) payload() {}

// BetEvent builds the event for a bet. market may be nil.
// Claimed bets are reported as BET_CLAIMED at their placement time since the
// claim time is not recorded on the account.
func BetEvent(bet *domain.Bet, market *domain.Market) Event {
	typ := EventBetPlaced
	if bet.Claimed {
		typ = EventBetClaimed
	}
	return betEvent(typ, bet, market)
}

func betEvent(typ EventType, bet *domain.Bet, market *domain.Market) Event {
	p := BetPayload{
		Bet:      bet,
		Winnings: settlement.ComputeWinnings(bet, market),
	}
	if market != nil {
		p.MarketQuestion = market.Question
	}
	return Event{
		ID:        idhash.ComputeEventID(string(typ), bet.Address.String(), bet.Timestamp),
		Type:      typ,
		Timestamp: bet.Timestamp,
		Payload:   p,
	}
}

// MarketCreatedEvent builds the creation event for a market.
func MarketCreatedEvent(m *domain.Market) Event {
	return marketEvent(EventMarketCreated, m, m.CreatedAt)
}

// MarketResolvedEvent builds the resolution event for a resolved market.
// The account has no resolution time, so the end time stands in for it.
func MarketResolvedEvent(m *domain.Market) Event {
	return marketEvent(EventMarketResolved, m, m.EndTime)
}

func marketEvent(typ EventType, m *domain.Market, ts int64) Event {
	return Event{
		ID:        idhash.ComputeEventID(string(typ), m.Address.String(), ts),
		Type:      typ,
		Timestamp: ts,
		Payload: MarketPayload{
			Market: m,
			Odds:   settlement.ImpliedOdds(m),
		},
	}
}

// FromBets builds one event per bet, enriched from markets.
func FromBets(bets []*domain.Bet, markets domain.MarketIndex) []Event {
	events := make([]Event, 0, len(bets))
	for _, b := range bets {
		if b == nil {
			continue
		}
		events = append(events, BetEvent(b, markets[b.Market]))
	}
	return events
}

// FromMarkets builds a creation event per market plus a resolution event for
// resolved markets.
func FromMarkets(markets []*domain.Market) []Event {
	events := make([]Event, 0, len(markets))
	for _, m := range markets {
		if m == nil {
			continue
		}
		events = append(events, MarketCreatedEvent(m))
		if m.Resolved {
			events = append(events, MarketResolvedEvent(m))
		}
	}
	return events
}
