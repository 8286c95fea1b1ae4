// Package snapshot periodically persists leaderboard builds.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/leaderboard"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/storage"
)

// Builder produces ranked leaderboards. Implemented by *leaderboard.Engine.
type Builder interface {
	Build(ctx context.Context, sortKey domain.SortKey, limit int) (*leaderboard.Result, error)
}

// Runner builds and stores one snapshot per sort key on every tick.
type Runner struct {
	builder  Builder
	store    storage.LeaderboardSnapshotStore
	sortKeys []domain.SortKey
	limit    int
	interval time.Duration
	logger   *zap.Logger
	newID    func() string

	mu       sync.Mutex
	running  bool
	lastRun  time.Time
	runs     int
	failures int
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Builder  Builder
	Store    storage.LeaderboardSnapshotStore
	SortKeys []domain.SortKey // Default: all sort keys
	Limit    int              // Entries kept per snapshot; <= 0 keeps all
	Interval time.Duration    // Default: 5m
	Logger   *zap.Logger
	NewID    func() string // Default: uuid v4
}

// Status reports scheduler counters.
type Status struct {
	Running  bool      `json:"running"`
	LastRun  time.Time `json:"lastRun"`
	Runs     int       `json:"runs"`
	Failures int       `json:"failures"`
}

// NewRunner creates a snapshot runner.
func NewRunner(opts RunnerOptions) *Runner {
	sortKeys := opts.SortKeys
	if len(sortKeys) == 0 {
		sortKeys = domain.SortKeys
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	newID := opts.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	return &Runner{
		builder:  opts.Builder,
		store:    opts.Store,
		sortKeys: sortKeys,
		limit:    opts.Limit,
		interval: interval,
		logger:   logger.Named("snapshot"),
		newID:    newID,
	}
}

// Run takes a snapshot immediately and then on every interval.
// It blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting snapshot scheduler", zap.Duration("interval", r.interval))

	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("snapshot run failed", zap.Error(err))
	}
}

// RunOnce builds and stores a snapshot for every configured sort key.
// A failing key does not stop the others; the joined error is returned
// together with the snapshots that were stored.
func (r *Runner) RunOnce(ctx context.Context) ([]*domain.LeaderboardSnapshot, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Info("snapshot already running, skipping")
		return nil, nil
	}
	r.running = true
	r.mu.Unlock()

	var stored []*domain.LeaderboardSnapshot
	var errs []error
	for _, key := range r.sortKeys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		snap, err := r.snapshot(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		stored = append(stored, snap)
	}

	r.mu.Lock()
	r.running = false
	r.lastRun = time.Now()
	r.runs++
	if len(errs) > 0 {
		r.failures++
	}
	r.mu.Unlock()

	return stored, errors.Join(errs...)
}

func (r *Runner) snapshot(ctx context.Context, key domain.SortKey) (*domain.LeaderboardSnapshot, error) {
	res, err := r.builder.Build(ctx, key, r.limit)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	snap := FromResult(r.newID(), r.limit, res)
	if err := r.store.Insert(ctx, snap); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	observability.RecordSnapshotStored(key.String(), res.BuiltAt.Unix())
	r.logger.Info("snapshot stored",
		zap.String("snapshot_id", snap.SnapshotID),
		zap.String("sort_key", key.String()),
		zap.Int("entries", len(snap.Entries)),
		zap.String("digest", snap.Digest),
	)
	return snap, nil
}

// Status returns a copy of the scheduler counters.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{Running: r.running, LastRun: r.lastRun, Runs: r.runs, Failures: r.failures}
}

// FromResult converts a leaderboard build into a storable snapshot.
func FromResult(id string, limit int, res *leaderboard.Result) *domain.LeaderboardSnapshot {
	entries := make([]domain.LeaderboardEntry, len(res.Entries))
	copy(entries, res.Entries)
	return &domain.LeaderboardSnapshot{
		SnapshotID:  id,
		SortKey:     res.SortKey,
		Limit:       limit,
		Digest:      res.Digest,
		TraderCount: res.TraderCount,
		FailedCount: len(res.Failed),
		CreatedAt:   res.BuiltAt.UnixMilli(),
		Entries:     entries,
	}
}
