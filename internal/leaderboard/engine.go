// Package leaderboard ranks traders by aggregated bet statistics.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/idhash"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/stats"
)

// DefaultBatchSize bounds concurrent per-user fetches.
const DefaultBatchSize = 10

// ErrUnknownSortKey is returned for an unsupported sort key.
var ErrUnknownSortKey = errors.New("leaderboard: unknown sort key")

// BetScanner lists every bet account of the program.
type BetScanner interface {
	ScanBets(ctx context.Context) ([]*domain.Bet, error)
}

// HistoryFetcher loads one user's bets and referenced markets.
type HistoryFetcher interface {
	UserHistory(ctx context.Context, wallet solana.PublicKey) ([]*domain.Bet, domain.MarketIndex, error)
}

// Failure records a user dropped from a build.
type Failure struct {
	Wallet solana.PublicKey
	Err    error
}

// Result is a ranked leaderboard.
type Result struct {
	SortKey     domain.SortKey
	Entries     []domain.LeaderboardEntry
	TraderCount int       // distinct users found by the scan
	Failed      []Failure // users dropped on error, in scan order
	Digest      string
	BuiltAt     time.Time
}

// Engine builds leaderboards.
type Engine struct {
	scanner   BetScanner
	fetcher   HistoryFetcher
	batchSize int
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithBatchSize sets how many users are fetched concurrently per batch.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the time source for Result.BuiltAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a leaderboard engine.
func NewEngine(scanner BetScanner, fetcher HistoryFetcher, opts ...Option) *Engine {
	e := &Engine{
		scanner:   scanner,
		fetcher:   fetcher,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("leaderboard")
	return e
}

// BatchSize returns the configured batch size.
func (e *Engine) BatchSize() int {
	return e.batchSize
}

// ParseSortKey resolves a sort key name. Matching ignores case, '_' and '-'.
func ParseSortKey(s string) (domain.SortKey, error) {
	norm := normalizeKey(s)
	for _, k := range domain.SortKeys {
		if normalizeKey(string(k)) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "").Replace(s)
}

// Build scans all bets, aggregates stats per distinct user in sequential
// batches, drops users without resolved bets, and ranks the rest by sortKey
// descending. Ties keep scan order. limit <= 0 returns every ranked user.
//
// A user whose history cannot be loaded is dropped and listed in
// Result.Failed. A failed bet scan or a cancelled context aborts the build.
func (e *Engine) Build(ctx context.Context, sortKey domain.SortKey, limit int) (*Result, error) {
	if !sortKey.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, sortKey)
	}

	start := time.Now()
	res, err := e.build(ctx, sortKey, limit)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		observability.RecordLeaderboardBuild(sortKey.String(), "error", elapsed, 0, 0)
		e.logger.Warn("leaderboard build failed", zap.String("sort_key", sortKey.String()), zap.Error(err))
		return nil, err
	}

	observability.RecordLeaderboardBuild(sortKey.String(), "success", elapsed, len(res.Entries), len(res.Failed))
	e.logger.Info("leaderboard built",
		zap.String("sort_key", sortKey.String()),
		zap.Int("traders", res.TraderCount),
		zap.Int("ranked", len(res.Entries)),
		zap.Int("dropped", len(res.Failed)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (e *Engine) build(ctx context.Context, sortKey domain.SortKey, limit int) (*Result, error) {
	bets, err := e.scanner.ScanBets(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan bets: %w", err)
	}

	users := distinctUsers(bets)
	computed, errs, err := e.computeAll(ctx, users)
	if err != nil {
		return nil, err
	}

	res := &Result{
		SortKey:     sortKey,
		TraderCount: len(users),
		BuiltAt:     e.now(),
	}

	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for i, wallet := range users {
		if errs[i] != nil {
			res.Failed = append(res.Failed, Failure{Wallet: wallet, Err: errs[i]})
			continue
		}
		if computed[i].ResolvedBets == 0 {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{Wallet: wallet, Stats: computed[i]})
	}

	Rank(entries, sortKey)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	res.Entries = entries
	res.Digest = idhash.ComputeLeaderboardDigest(sortKey, entries)
	return res, nil
}

// computeAll aggregates every user, batchSize at a time. Each batch fans out
// and must finish before the next starts. Results are written to the index of
// the user so output order never depends on completion order.
func (e *Engine) computeAll(ctx context.Context, users []solana.PublicKey) ([]domain.UserStats, []error, error) {
	computed := make([]domain.UserStats, len(users))
	errs := make([]error, len(users))

	for start := 0; start < len(users); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		end := min(start+e.batchSize, len(users))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				bets, markets, err := e.fetcher.UserHistory(ctx, users[i])
				if err != nil {
					errs[i] = err
					e.logger.Warn("dropping user",
						zap.Stringer("wallet", users[i]),
						zap.Error(err),
					)
					return nil
				}
				computed[i] = stats.Aggregate(bets, markets)
				return nil
			})
		}
		_ = g.Wait()

		// Fetches failing because the build was cancelled are not per-user failures.
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
	}

	return computed, errs, nil
}

// Rank sorts entries descending by key with a stable sort and assigns rank = index+1.
func Rank(entries []domain.LeaderboardEntry, key domain.SortKey) {
	sort.SliceStable(entries, func(i, j int) bool {
		return key.Less(entries[j].Stats, entries[i].Stats)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// distinctUsers returns bet owners in first-seen order.
func distinctUsers(bets []*domain.Bet) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	var users []solana.PublicKey
	for _, b := range bets {
		if _, ok := seen[b.User]; ok {
			continue
		}
		seen[b.User] = struct{}{}
		users = append(users, b.User)
	}
	return users
}
