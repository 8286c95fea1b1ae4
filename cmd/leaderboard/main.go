// Command leaderboard builds ranked leaderboards once and writes them as CSV
// and Markdown. With -store the snapshots are also persisted to the
// configured backend, and with export.bucket set the files are uploaded to
// object storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prediction-market-lab/internal/bootstrap"
	"prediction-market-lab/internal/config"
	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/export"
	"prediction-market-lab/internal/leaderboard"
	"prediction-market-lab/internal/observability"
	"prediction-market-lab/internal/reporting"
	"prediction-market-lab/internal/snapshot"
	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/stats"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	sortKeys := flag.String("sort", "", "Comma-separated sort keys (default: leaderboard.default_sort)")
	limit := flag.Int("limit", -1, "Entries per leaderboard, 0 for all (default: leaderboard.default_limit)")
	wallet := flag.String("wallet", "", "Also write a stats report for this wallet")
	store := flag.Bool("store", false, "Persist snapshots to the configured storage backend")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("invalid config: %v", err)
	}
	if *limit < 0 {
		*limit = cfg.Leaderboard.DefaultLimit
	}

	keys, err := parseKeys(*sortKeys, cfg.Leaderboard.DefaultSort)
	if err != nil {
		fatalf("%v", err)
	}

	logger, err := observability.NewLogger("prediction-market-leaderboard", cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		fatalf("create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	l, err := bootstrap.NewLedger(ctx, cfg, logger)
	if err != nil {
		fatalf("%v", err)
	}
	defer l.Close()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fatalf("create output directory: %v", err)
	}

	engine := leaderboard.NewEngine(l.Repo, l.Repo,
		leaderboard.WithBatchSize(cfg.Leaderboard.BatchSize),
		leaderboard.WithLogger(logger),
	)

	var persist func(*domain.LeaderboardSnapshot) error
	if *store {
		s, cleanup, err := bootstrap.NewSnapshotStore(ctx, cfg, logger)
		if err != nil {
			fatalf("%v", err)
		}
		defer cleanup()
		persist = func(snap *domain.LeaderboardSnapshot) error { return s.Insert(ctx, snap) }
	}

	gen := reporting.NewGenerator(nil)
	var written []string

	for _, key := range keys {
		res, err := engine.Build(ctx, key, *limit)
		if err != nil {
			fatalf("build %s leaderboard: %v", key, err)
		}

		snap := snapshot.FromResult(uuid.New().String(), *limit, res)
		if persist != nil {
			if err := persist(snap); err != nil {
				fatalf("store %s snapshot: %v", key, err)
			}
			logger.Info("snapshot stored", zap.String("id", snap.SnapshotID), zap.String("sort", string(key)))
		}

		report := gen.Leaderboard(snap)
		base := filepath.Join(*outputDir, "leaderboard_"+string(key))
		if err := writeFile(base+".csv", reporting.RenderLeaderboardCSV(report)); err != nil {
			fatalf("%v", err)
		}
		if err := writeFile(base+".md", reporting.RenderLeaderboardMarkdown(report)); err != nil {
			fatalf("%v", err)
		}
		written = append(written, base+".csv", base+".md")

		if len(res.Failed) > 0 {
			logger.Warn("users dropped from leaderboard", zap.String("sort", string(key)), zap.Int("count", len(res.Failed)))
		}
	}

	if *wallet != "" {
		path, err := writeUserReport(ctx, stats.NewService(l.Repo), gen, *wallet, *outputDir)
		if err != nil {
			fatalf("%v", err)
		}
		written = append(written, path)
	}

	fmt.Println("Leaderboard reports generated successfully:")
	for _, path := range written {
		fmt.Printf("  - %s\n", path)
	}

	if cfg.Export.Bucket != "" {
		keys, err := upload(ctx, cfg.Export, written, logger)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Uploaded to s3://%s:\n", cfg.Export.Bucket)
		for _, key := range keys {
			fmt.Printf("  - %s\n", key)
		}
	}
}

func upload(ctx context.Context, cfg config.ExportConfig, paths []string, logger *zap.Logger) ([]string, error) {
	exp, err := export.NewS3Exporter(ctx, export.Config{
		Endpoint:       cfg.Endpoint,
		Region:         cfg.Region,
		Bucket:         cfg.Bucket,
		Prefix:         cfg.Prefix,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		ForcePathStyle: cfg.ForcePathStyle,
	}, logger)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(paths))
	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		name := filepath.Base(path)
		key, err := exp.Put(ctx, name, body, export.ContentType(name))
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func writeUserReport(ctx context.Context, svc *stats.Service, gen *reporting.Generator, wallet, outputDir string) (string, error) {
	pk, err := solana.ParsePublicKey(wallet)
	if err != nil {
		return "", fmt.Errorf("wallet: %w", err)
	}
	userStats, err := svc.UserStats(ctx, pk)
	if err != nil {
		return "", fmt.Errorf("user stats: %w", err)
	}
	positions, err := svc.UserPositions(ctx, pk)
	if err != nil {
		return "", fmt.Errorf("user positions: %w", err)
	}

	path := filepath.Join(outputDir, "user_"+pk.String()+".md")
	return path, writeFile(path, reporting.RenderUserStatsMarkdown(gen.User(pk, userStats, positions)))
}

// parseKeys splits a comma-separated list, falling back to def.
func parseKeys(list, def string) ([]domain.SortKey, error) {
	if strings.TrimSpace(list) == "" {
		list = def
	}
	var keys []domain.SortKey
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key, err := leaderboard.ParseSortKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
