// Package main runs the read-only HTTP API together with the snapshot
// scheduler:
// - API: leaderboards, user stats, positions, activity, markets
// - Snapshots (scheduled): one persisted leaderboard per sort key
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"prediction-market-lab/internal/activity"
	"prediction-market-lab/internal/api"
	"prediction-market-lab/internal/bootstrap"
	"prediction-market-lab/internal/config"
	"prediction-market-lab/internal/leaderboard"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/snapshot"
	"prediction-market-lab/internal/stats"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	noSnapshots := flag.Bool("no-snapshots", false, "Disable the snapshot scheduler")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *noSnapshots {
		cfg.Snapshot.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger("prediction-market-server", cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) error {
	l, err := bootstrap.NewLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer l.Close()

	store, cleanup, err := bootstrap.NewSnapshotStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := leaderboard.NewEngine(l.Repo, l.Repo,
		leaderboard.WithBatchSize(cfg.Leaderboard.BatchSize),
		leaderboard.WithLogger(logger),
	)

	apiCfg := api.Config{
		Addr:         cfg.Server.Addr,
		DefaultLimit: cfg.Leaderboard.DefaultLimit,
		DefaultSort:  cfg.Leaderboard.DefaultSort,
	}
	h := api.NewHandlers(apiCfg, logger)
	h.Leaderboards = engine
	h.Stats = stats.NewService(l.Repo)
	h.Feed = activity.NewFeed(l.Repo)
	h.Markets = l.Repo
	h.Snapshots = store

	server := api.NewServer(apiCfg, h, logger)

	done := make(chan struct{})
	defer close(done)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, initiating graceful shutdown", zap.Stringer("signal", sig))
			cancel()
		case <-done:
			return
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.Stringer("signal", sig))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	errCh := make(chan error, 2)

	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	if cfg.Snapshot.Enabled {
		runner := snapshot.NewRunner(snapshot.RunnerOptions{
			Builder:  engine,
			Store:    store,
			SortKeys: cfg.SnapshotSortKeys(),
			Limit:    cfg.Snapshot.Limit,
			Interval: cfg.Snapshot.Interval.Duration,
			Logger:   logger,
		})
		go func() {
			if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("snapshot scheduler: %w", err)
			}
		}()
	}

	logger.Info("server started",
		zap.String("program", cfg.Solana.ProgramID),
		zap.String("rpc", cfg.Solana.RPCEndpoint),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("snapshots", cfg.Snapshot.Enabled),
	)

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return runErr
}
