// Package bootstrap wires configured components for the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	rediscache "prediction-market-lab/internal/cache/redis"
	"prediction-market-lab/internal/config"
	"prediction-market-lab/internal/ledger"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/storage"
	chstore "prediction-market-lab/internal/storage/clickhouse"
	"prediction-market-lab/internal/storage/memory"
	"prediction-market-lab/internal/storage/migrations"
	pgstore "prediction-market-lab/internal/storage/postgres"
)

// Ledger is the account read path: RPC client, optional Redis cache and the
// decoding repository on top.
type Ledger struct {
	RPC     *solana.HTTPClient
	Fetcher ledger.AccountFetcher
	Repo    *ledger.Repository

	closers []func() error
}

// NewLedger builds the read path from cfg. The Redis cache is added when
// cfg.Redis.Addr is set.
func NewLedger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Ledger, error) {
	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithCommitment(solana.Commitment(cfg.Solana.Commitment)),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
		solana.WithTimeout(cfg.Solana.Timeout.Duration),
	)

	l := &Ledger{RPC: rpc, Fetcher: rpc}

	if cfg.Redis.Addr != "" {
		client, err := rediscache.New(ctx, rediscache.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		l.closers = append(l.closers, client.Close)
		l.Fetcher = rediscache.NewAccountCache(client, rpc,
			rediscache.WithTTL(cfg.Redis.TTL.Duration),
			rediscache.WithLogger(logger),
		)
		logger.Info("account cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL.Duration))
	}

	l.Repo = ledger.NewRepository(l.Fetcher, cfg.ProgramID(), ledger.WithLogger(logger))
	return l, nil
}

// Close releases the cache connection, if any.
func (l *Ledger) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewSnapshotStore opens the configured snapshot backend. The returned
// cleanup must be called once the store is no longer used.
func NewSnapshotStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.LeaderboardSnapshotStore, func(), error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "memory":
		return memory.NewSnapshotStore(), func() {}, nil

	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN, pgstore.WithMaxConns(cfg.Storage.PostgresConns))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if cfg.Storage.RunMigrations {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		return pgstore.NewSnapshotStore(pool), pool.Close, nil

	case "clickhouse":
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Storage.RunMigrations {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
			if err == nil {
				logger.Info("clickhouse migrations applied")
			}
		} else {
			conn, err = chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		return chstore.NewSnapshotStore(conn), func() { conn.Close() }, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown storage backend %q", storage.ErrInvalidInput, cfg.Storage.Backend)
}
