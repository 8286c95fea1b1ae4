// Package publish delivers live activity events to external sinks.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"prediction-market-lab/internal/activity"
	"prediction-market-lab/internal/solana"
)

// Publisher delivers activity events.
type Publisher interface {
	Publish(ctx context.Context, ev activity.Event) error
	Close() error
}

// JSONLines writes one JSON document per line.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines creates a JSONLines publisher over w. Closing it does not close w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

// Publish implements Publisher.
func (j *JSONLines) Publish(_ context.Context, ev activity.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(ev)
}

// Close implements Publisher.
func (j *JSONLines) Close() error { return nil }

// Multi publishes every event to each publisher in order. A failing
// publisher does not stop the rest; errors are joined.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, ev activity.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// MarketKey returns the market an event belongs to. Partitioning by market
// keeps each market's events in order.
func MarketKey(ev activity.Event) (solana.PublicKey, bool) {
	switch p := ev.Payload.(type) {
	case activity.BetPayload:
		if p.Bet != nil {
			return p.Bet.Market, true
		}
	case activity.MarketPayload:
		if p.Market != nil {
			return p.Market.Address, true
		}
	}
	return solana.PublicKey{}, false
}
