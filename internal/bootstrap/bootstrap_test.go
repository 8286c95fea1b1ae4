package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prediction-market-lab/internal/config"
	"prediction-market-lab/internal/storage"
	"prediction-market-lab/internal/storage/memory"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Solana.ProgramID = "11111111111111111111111111111111"
	return &cfg
}

func TestNewLedger_WithoutCache(t *testing.T) {
	cfg := testConfig()

	l, err := NewLedger(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer l.Close()

	assert.Same(t, l.RPC, l.Fetcher, "no cache without redis addr")
	assert.Equal(t, cfg.ProgramID(), l.Repo.ProgramID())
}

func TestNewSnapshotStore_Memory(t *testing.T) {
	store, cleanup, err := NewSnapshotStore(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	_, ok := store.(*memory.SnapshotStore)
	assert.True(t, ok)
}

func TestNewSnapshotStore_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Backend = "sqlite"

	_, _, err := NewSnapshotStore(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
