package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges an optional TOML file at path over Defaults, loads .env if
// present, and applies PML_* environment overrides. An empty path skips the
// file. The result is not validated; call Config.Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose PML_* variable is set and non-empty.
func applyEnvOverrides(cfg *Config) {
	// Solana
	setStr(&cfg.Solana.ProgramID, "PML_PROGRAM_ID")
	setStr(&cfg.Solana.RPCEndpoint, "PML_RPC_ENDPOINT")
	setStr(&cfg.Solana.WSEndpoint, "PML_WS_ENDPOINT")
	setStr(&cfg.Solana.Commitment, "PML_COMMITMENT")
	setInt(&cfg.Solana.MaxRetries, "PML_RPC_MAX_RETRIES")
	setDuration(&cfg.Solana.Timeout, "PML_RPC_TIMEOUT")

	// Leaderboard
	setInt(&cfg.Leaderboard.BatchSize, "PML_LEADERBOARD_BATCH_SIZE")
	setInt(&cfg.Leaderboard.DefaultLimit, "PML_LEADERBOARD_DEFAULT_LIMIT")
	setStr(&cfg.Leaderboard.DefaultSort, "PML_LEADERBOARD_DEFAULT_SORT")

	// Storage
	setStr(&cfg.Storage.Backend, "PML_STORAGE_BACKEND")
	setStr(&cfg.Storage.PostgresDSN, "PML_POSTGRES_DSN")
	setInt(&cfg.Storage.PostgresConns, "PML_POSTGRES_MAX_CONNS")
	setStr(&cfg.Storage.ClickhouseDSN, "PML_CLICKHOUSE_DSN")
	setBool(&cfg.Storage.RunMigrations, "PML_RUN_MIGRATIONS")

	// Redis
	setStr(&cfg.Redis.Addr, "PML_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PML_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PML_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PML_REDIS_POOL_SIZE")
	setDuration(&cfg.Redis.TTL, "PML_REDIS_TTL")

	// Snapshot
	setBool(&cfg.Snapshot.Enabled, "PML_SNAPSHOT_ENABLED")
	setDuration(&cfg.Snapshot.Interval, "PML_SNAPSHOT_INTERVAL")
	setStringSlice(&cfg.Snapshot.SortKeys, "PML_SNAPSHOT_SORT_KEYS")
	setInt(&cfg.Snapshot.Limit, "PML_SNAPSHOT_LIMIT")

	// Server
	setStr(&cfg.Server.Addr, "PML_HTTP_ADDR")

	// Publish
	setStringSlice(&cfg.Publish.KafkaBrokers, "PML_KAFKA_BROKERS")
	setStr(&cfg.Publish.KafkaTopic, "PML_KAFKA_TOPIC")

	// Export
	setStr(&cfg.Export.Endpoint, "PML_S3_ENDPOINT")
	setStr(&cfg.Export.Region, "PML_S3_REGION")
	setStr(&cfg.Export.Bucket, "PML_S3_BUCKET")
	setStr(&cfg.Export.Prefix, "PML_S3_PREFIX")
	setStr(&cfg.Export.AccessKey, "PML_S3_ACCESS_KEY")
	setStr(&cfg.Export.SecretKey, "PML_S3_SECRET_KEY")
	setBool(&cfg.Export.ForcePathStyle, "PML_S3_FORCE_PATH_STYLE")

	// Log
	setStr(&cfg.Log.Env, "PML_LOG_ENV")
	setStr(&cfg.Log.Level, "PML_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		*dst = cleaned
	}
}
