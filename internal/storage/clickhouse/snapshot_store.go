package clickhouse

import (
	"context"
	"fmt"
	"time"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/storage"
)

// SnapshotStore implements storage.LeaderboardSnapshotStore using ClickHouse.
// Entries are stored flat with their sort key and timestamp for analytics.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LeaderboardSnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `snapshot_id, sort_key, result_limit, digest, trader_count, failed_count, created_at`

const entryColumns = `
	rank, wallet,
	total_bets, active_bets, resolved_bets, won_bets, lost_bets,
	total_wagered, total_won, total_claimed, unclaimed_winnings,
	win_rate, profit_loss, roi`

// Insert adds a snapshot. Returns ErrDuplicateKey if snapshot_id exists.
// MergeTree does not enforce uniqueness, so existence is checked first.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.LeaderboardSnapshot) (err error) {
	if err := storage.ValidateSnapshot(snap); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_snapshot", time.Since(start).Seconds(), err)
	}()

	exists, err := s.exists(ctx, snap.SnapshotID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	// Entries first: a reader keys off the header, so a partial write stays invisible.
	if len(snap.Entries) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `
			INSERT INTO leaderboard_entries (snapshot_id, sort_key, created_at,`+entryColumns+`)
		`)
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}

		for _, e := range snap.Entries {
			st := e.Stats
			err = batch.Append(
				snap.SnapshotID, string(snap.SortKey), snap.CreatedAt,
				uint32(e.Rank), e.Wallet.String(),
				uint32(st.TotalBets), uint32(st.ActiveBets), uint32(st.ResolvedBets), uint32(st.WonBets), uint32(st.LostBets),
				st.TotalWagered, st.TotalWon, st.TotalClaimed, st.UnclaimedWinnings,
				st.WinRate, st.ProfitLoss, st.ROI,
			)
			if err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}

		if err := batch.Send(); err != nil {
			return fmt.Errorf("send batch: %w", err)
		}
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO leaderboard_snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		snap.SnapshotID, string(snap.SortKey), int32(snap.Limit), snap.Digest,
		uint32(snap.TraderCount), uint32(snap.FailedCount), snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot with its entries. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByID(ctx context.Context, snapshotID string) (*domain.LeaderboardSnapshot, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM leaderboard_snapshots
		WHERE snapshot_id = ?
		LIMIT 1
	`, snapshotID)

	snap, err := scanSnapshot(row)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return s.withEntries(ctx, snap)
}

// GetLatest retrieves the newest snapshot for a sort key.
func (s *SnapshotStore) GetLatest(ctx context.Context, sortKey domain.SortKey) (*domain.LeaderboardSnapshot, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT `+snapshotColumns+`
		FROM leaderboard_snapshots
		WHERE sort_key = ?
		ORDER BY created_at DESC, snapshot_id DESC
		LIMIT 1
	`, string(sortKey))

	snap, err := scanSnapshot(row)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	return s.withEntries(ctx, snap)
}

// List retrieves snapshot headers for a sort key, newest first.
func (s *SnapshotStore) List(ctx context.Context, sortKey domain.SortKey, limit int) ([]*domain.LeaderboardSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM leaderboard_snapshots
		WHERE sort_key = ?
		ORDER BY created_at DESC, snapshot_id DESC
	`
	args := []any{string(sortKey)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.LeaderboardSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return result, nil
}

func (s *SnapshotStore) withEntries(ctx context.Context, snap *domain.LeaderboardSnapshot) (*domain.LeaderboardSnapshot, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+entryColumns+`
		FROM leaderboard_entries
		WHERE snapshot_id = ?
		ORDER BY rank ASC
	`, snap.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}
	return snap, nil
}

// exists checks if a snapshot header with the given ID exists.
func (s *SnapshotStore) exists(ctx context.Context, snapshotID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count() FROM leaderboard_snapshots WHERE snapshot_id = ?
	`, snapshotID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRow is satisfied by both driver.Row and driver.Rows.
type chRow interface {
	Scan(dest ...any) error
}

func scanSnapshot(row chRow) (*domain.LeaderboardSnapshot, error) {
	var (
		snap                domain.LeaderboardSnapshot
		sortKey             string
		limit               int32
		traderCount, failed uint32
	)
	err := row.Scan(
		&snap.SnapshotID, &sortKey, &limit, &snap.Digest,
		&traderCount, &failed, &snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	snap.SortKey = domain.SortKey(sortKey)
	snap.Limit = int(limit)
	snap.TraderCount = int(traderCount)
	snap.FailedCount = int(failed)
	return &snap, nil
}

func scanEntry(row chRow) (domain.LeaderboardEntry, error) {
	var (
		e                                  domain.LeaderboardEntry
		rank                               uint32
		wallet                             string
		total, active, resolved, won, lost uint32
	)
	st := &e.Stats

	err := row.Scan(
		&rank, &wallet,
		&total, &active, &resolved, &won, &lost,
		&st.TotalWagered, &st.TotalWon, &st.TotalClaimed, &st.UnclaimedWinnings,
		&st.WinRate, &st.ProfitLoss, &st.ROI,
	)
	if err != nil {
		return e, err
	}

	if e.Wallet, err = solana.ParsePublicKey(wallet); err != nil {
		return e, err
	}
	e.Rank = int(rank)
	st.TotalBets = int(total)
	st.ActiveBets = int(active)
	st.ResolvedBets = int(resolved)
	st.WonBets = int(won)
	st.LostBets = int(lost)
	return e, nil
}
