// Package config defines the service configuration and its validation.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"prediction-market-lab/internal/domain"
	"prediction-market-lab/internal/solana"
)

// Config is the root configuration. Fields come from Defaults, then an
// optional TOML file, then PML_* environment variables.
type Config struct {
	Solana      SolanaConfig      `toml:"solana"`
	Leaderboard LeaderboardConfig `toml:"leaderboard"`
	Storage     StorageConfig     `toml:"storage"`
	Redis       RedisConfig       `toml:"redis"`
	Snapshot    SnapshotConfig    `toml:"snapshot"`
	Server      ServerConfig      `toml:"server"`
	Publish     PublishConfig     `toml:"publish"`
	Export      ExportConfig      `toml:"export"`
	Log         LogConfig         `toml:"log"`
}

// SolanaConfig holds the program and RPC endpoints.
type SolanaConfig struct {
	ProgramID   string   `toml:"program_id"`
	RPCEndpoint string   `toml:"rpc_endpoint"`
	WSEndpoint  string   `toml:"ws_endpoint"`
	Commitment  string   `toml:"commitment"`
	MaxRetries  int      `toml:"max_retries"`
	Timeout     duration `toml:"timeout"`
}

// LeaderboardConfig controls leaderboard builds.
type LeaderboardConfig struct {
	BatchSize    int    `toml:"batch_size"`
	DefaultLimit int    `toml:"default_limit"`
	DefaultSort  string `toml:"default_sort"`
}

// StorageConfig selects the snapshot store.
type StorageConfig struct {
	Backend       string `toml:"backend"` // memory, postgres or clickhouse
	PostgresDSN   string `toml:"postgres_dsn"`
	PostgresConns int    `toml:"postgres_max_conns"`
	ClickhouseDSN string `toml:"clickhouse_dsn"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig enables the account cache when Addr is set.
type RedisConfig struct {
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	PoolSize int      `toml:"pool_size"`
	TTL      duration `toml:"ttl"`
}

// SnapshotConfig controls the snapshot scheduler.
type SnapshotConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
	SortKeys []string `toml:"sort_keys"`
	Limit    int      `toml:"limit"`
}

// ServerConfig holds HTTP listener parameters.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// PublishConfig enables the Kafka activity sink when brokers are set.
type PublishConfig struct {
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`
}

// ExportConfig enables report uploads when Bucket is set.
type ExportConfig struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Env   string `toml:"env"` // "local" selects the development encoder
	Level string `toml:"level"`
}

// duration wraps time.Duration so TOML can decode strings like "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config that runs against devnet with in-memory storage.
// ProgramID has no default.
func Defaults() Config {
	return Config{
		Solana: SolanaConfig{
			RPCEndpoint: "https://api.devnet.solana.com",
			WSEndpoint:  "wss://api.devnet.solana.com",
			Commitment:  string(solana.CommitmentConfirmed),
			MaxRetries:  3,
			Timeout:     duration{30 * time.Second},
		},
		Leaderboard: LeaderboardConfig{
			BatchSize:    10,
			DefaultLimit: 50,
			DefaultSort:  string(domain.SortROI),
		},
		Storage: StorageConfig{
			Backend:       "memory",
			PostgresConns: 10,
		},
		Redis: RedisConfig{
			PoolSize: 10,
			TTL:      duration{5 * time.Second},
		},
		Snapshot: SnapshotConfig{
			Enabled:  true,
			Interval: duration{5 * time.Minute},
			Limit:    100,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Publish: PublishConfig{
			KafkaTopic: "prediction-market.activity",
		},
		Export: ExportConfig{
			Region: "us-east-1",
		},
		Log: LogConfig{
			Env:   "production",
			Level: "info",
		},
	}
}

var validBackends = map[string]bool{"memory": true, "postgres": true, "clickhouse": true}

var validCommitments = map[string]bool{
	string(solana.CommitmentProcessed): true,
	string(solana.CommitmentConfirmed): true,
	string(solana.CommitmentFinalized): true,
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Solana.ProgramID == "" {
		errs = append(errs, "solana: program_id is required")
	} else if _, err := solana.ParsePublicKey(c.Solana.ProgramID); err != nil {
		errs = append(errs, fmt.Sprintf("solana: program_id: %v", err))
	}
	if err := checkURL(c.Solana.RPCEndpoint, "http", "https"); err != nil {
		errs = append(errs, "solana: rpc_endpoint "+err.Error())
	}
	if err := checkURL(c.Solana.WSEndpoint, "ws", "wss"); err != nil {
		errs = append(errs, "solana: ws_endpoint "+err.Error())
	}
	if !validCommitments[c.Solana.Commitment] {
		errs = append(errs, fmt.Sprintf("solana: unknown commitment %q (valid: processed, confirmed, finalized)", c.Solana.Commitment))
	}

	if c.Leaderboard.BatchSize <= 0 {
		errs = append(errs, "leaderboard: batch_size must be positive")
	}
	if !domain.SortKey(c.Leaderboard.DefaultSort).IsValid() {
		errs = append(errs, fmt.Sprintf("leaderboard: unknown default_sort %q", c.Leaderboard.DefaultSort))
	}

	switch backend := strings.ToLower(c.Storage.Backend); {
	case !validBackends[backend]:
		errs = append(errs, fmt.Sprintf("storage: unknown backend %q (valid: memory, postgres, clickhouse)", c.Storage.Backend))
	case backend == "postgres" && c.Storage.PostgresDSN == "":
		errs = append(errs, "storage: postgres_dsn is required for the postgres backend")
	case backend == "clickhouse" && c.Storage.ClickhouseDSN == "":
		errs = append(errs, "storage: clickhouse_dsn is required for the clickhouse backend")
	}

	if c.Snapshot.Enabled && c.Snapshot.Interval.Duration <= 0 {
		errs = append(errs, "snapshot: interval must be positive")
	}
	for _, k := range c.Snapshot.SortKeys {
		if !domain.SortKey(k).IsValid() {
			errs = append(errs, fmt.Sprintf("snapshot: unknown sort key %q", k))
		}
	}

	if len(c.Publish.KafkaBrokers) > 0 && c.Publish.KafkaTopic == "" {
		errs = append(errs, "publish: kafka_topic is required when kafka_brokers is set")
	}
	if c.Export.Bucket != "" && c.Export.Region == "" {
		errs = append(errs, "export: region is required when bucket is set")
	}
	if c.Export.Endpoint != "" {
		if err := checkURL(c.Export.Endpoint, "http", "https"); err != nil {
			errs = append(errs, "export: endpoint "+err.Error())
		}
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log: unknown level %q (valid: debug, info, warn, error)", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ProgramID returns the parsed program address. Call after Validate.
func (c *Config) ProgramID() solana.PublicKey {
	pk, _ := solana.ParsePublicKey(c.Solana.ProgramID)
	return pk
}

// SnapshotSortKeys returns the configured keys, or every key when unset.
func (c *Config) SnapshotSortKeys() []domain.SortKey {
	if len(c.Snapshot.SortKeys) == 0 {
		return domain.SortKeys
	}
	keys := make([]domain.SortKey, len(c.Snapshot.SortKeys))
	for i, k := range c.Snapshot.SortKeys {
		keys[i] = domain.SortKey(k)
	}
	return keys
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%q is not a valid URL", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%q must use scheme %s", raw, strings.Join(schemes, " or "))
}
