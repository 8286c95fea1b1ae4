package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/storage"
)

// SnapshotStore implements storage.LeaderboardSnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LeaderboardSnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `snapshot_id, sort_key, result_limit, digest, trader_count, failed_count, created_at`

// entryInsert passes amounts through text to keep the full u64 range.
const entryInsert = `
	INSERT INTO leaderboard_entries (
		snapshot_id, rank, wallet,
		total_bets, active_bets, resolved_bets, won_bets, lost_bets,
		total_wagered, total_won, total_claimed, unclaimed_winnings,
		win_rate, profit_loss, roi
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7, $8,
		$9::text::numeric, $10::text::numeric, $11::text::numeric, $12::text::numeric,
		$13, $14, $15
	)
`

// Insert writes the header and all entries in one transaction.
// Returns ErrDuplicateKey if snapshot_id exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.LeaderboardSnapshot) (err error) {
	if err := storage.ValidateSnapshot(snap); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "insert_snapshot", time.Since(start).Seconds(), err)
	}()

	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO leaderboard_snapshots (`+snapshotColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			snap.SnapshotID, string(snap.SortKey), snap.Limit, snap.Digest,
			snap.TraderCount, snap.FailedCount, snap.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert snapshot: %w", err)
		}

		batch := &pgx.Batch{}
		for _, e := range snap.Entries {
			st := e.Stats
			batch.Queue(entryInsert,
				snap.SnapshotID, e.Rank, e.Wallet.String(),
				st.TotalBets, st.ActiveBets, st.ResolvedBets, st.WonBets, st.LostBets,
				u64(st.TotalWagered), u64(st.TotalWon), u64(st.TotalClaimed), u64(st.UnclaimedWinnings),
				st.WinRate, st.ProfitLoss, st.ROI,
			)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert snapshot entries: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a snapshot with its entries. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, snapshotID string) (*domain.LeaderboardSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM leaderboard_snapshots
		WHERE snapshot_id = $1
	`, snapshotID)
	return s.withEntries(ctx, row)
}

// GetLatest retrieves the newest snapshot for a sort key.
func (s *SnapshotStore) GetLatest(ctx context.Context, sortKey domain.SortKey) (*domain.LeaderboardSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM leaderboard_snapshots
		WHERE sort_key = $1
		ORDER BY created_at DESC, snapshot_id DESC
		LIMIT 1
	`, string(sortKey))
	return s.withEntries(ctx, row)
}

// List retrieves snapshot headers for a sort key, newest first.
func (s *SnapshotStore) List(ctx context.Context, sortKey domain.SortKey, limit int) ([]*domain.LeaderboardSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM leaderboard_snapshots
		WHERE sort_key = $1
		ORDER BY created_at DESC, snapshot_id DESC
	`
	args := []any{string(sortKey)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.LeaderboardSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}

func (s *SnapshotStore) withEntries(ctx context.Context, row pgx.Row) (*domain.LeaderboardSnapshot, error) {
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT
			rank, wallet,
			total_bets, active_bets, resolved_bets, won_bets, lost_bets,
			total_wagered::text, total_won::text, total_claimed::text, unclaimed_winnings::text,
			win_rate, profit_loss, roi
		FROM leaderboard_entries
		WHERE snapshot_id = $1
		ORDER BY rank ASC
	`, snap.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("get snapshot entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot entry: %w", err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot entries: %w", err)
	}
	return snap, nil
}

func scanSnapshot(row pgx.Row) (*domain.LeaderboardSnapshot, error) {
	var snap domain.LeaderboardSnapshot
	var sortKey string
	err := row.Scan(
		&snap.SnapshotID, &sortKey, &snap.Limit, &snap.Digest,
		&snap.TraderCount, &snap.FailedCount, &snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	snap.SortKey = domain.SortKey(sortKey)
	return &snap, nil
}

func scanEntry(row pgx.Row) (domain.LeaderboardEntry, error) {
	var e domain.LeaderboardEntry
	var wallet string
	var wagered, won, claimed, unclaimed string
	st := &e.Stats

	err := row.Scan(
		&e.Rank, &wallet,
		&st.TotalBets, &st.ActiveBets, &st.ResolvedBets, &st.WonBets, &st.LostBets,
		&wagered, &won, &claimed, &unclaimed,
		&st.WinRate, &st.ProfitLoss, &st.ROI,
	)
	if err != nil {
		return e, err
	}

	if e.Wallet, err = solana.ParsePublicKey(wallet); err != nil {
		return e, err
	}
	for _, f := range []struct {
		src string
		dst *uint64
	}{
		{wagered, &st.TotalWagered},
		{won, &st.TotalWon},
		{claimed, &st.TotalClaimed},
		{unclaimed, &st.UnclaimedWinnings},
	} {
		if *f.dst, err = strconv.ParseUint(f.src, 10, 64); err != nil {
			return e, fmt.Errorf("parse amount %q: %w", f.src, err)
		}
	}
	return e, nil
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
