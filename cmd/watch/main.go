// Command watch streams live market and bet activity as JSON lines on stdout,
// and to Kafka when brokers are configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"prediction-market-lab/internal/activity"
	"prediction-market-lab/internal/bootstrap"
	"prediction-market-lab/internal/config"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/publish"
	"prediction-market-lab/internal/solana"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	seed := flag.Bool("seed", true, "Scan existing accounts first so only new activity is reported")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger("prediction-market-watch", cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Info("starting metrics server", zap.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *seed, logger); err != nil && ctx.Err() == nil {
		logger.Fatal("watch failed", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, seed bool, logger *zap.Logger) error {
	l, err := bootstrap.NewLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer l.Close()

	opts := []activity.WatcherOption{
		activity.WithMarketLookup(l.Repo),
		activity.WithWatcherLogger(logger),
	}
	if seed {
		markets, err := l.Repo.ScanMarkets(ctx)
		if err != nil {
			return fmt.Errorf("seed markets: %w", err)
		}
		bets, err := l.Repo.ScanBets(ctx)
		if err != nil {
			return fmt.Errorf("seed bets: %w", err)
		}
		logger.Info("seeded known accounts", zap.Int("markets", len(markets)), zap.Int("bets", len(bets)))
		opts = append(opts, activity.WithSeed(markets, bets))
	}

	wsCfg := solana.DefaultWSConfig()
	wsCfg.Commitment = solana.Commitment(cfg.Solana.Commitment)
	wsCfg.Logger = logger

	ws, err := solana.NewWSClient(ctx, cfg.Solana.WSEndpoint, &wsCfg)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	events, err := activity.NewWatcher(ws, cfg.ProgramID(), opts...).Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("watching program", zap.String("program", cfg.Solana.ProgramID), zap.String("ws", cfg.Solana.WSEndpoint))

	var sink publish.Publisher
	if len(cfg.Publish.KafkaBrokers) > 0 {
		kp, err := publish.NewKafkaPublisher(publish.KafkaConfig{
			Brokers: cfg.Publish.KafkaBrokers,
			Topic:   cfg.Publish.KafkaTopic,
		}, logger)
		if err != nil {
			return err
		}
		defer kp.Close()
		sink = kp
		logger.Info("publishing to kafka", zap.Strings("brokers", cfg.Publish.KafkaBrokers), zap.String("topic", cfg.Publish.KafkaTopic))
	}

	stdout := publish.NewJSONLines(os.Stdout)
	for ev := range events {
		if err := stdout.Publish(ctx, ev); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		if sink != nil {
			// Broker outages are logged by the publisher; the stream keeps going.
			_ = sink.Publish(ctx, ev)
		}
	}
	return ctx.Err()
}
