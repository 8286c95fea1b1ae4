package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"prediction-market-lab/internal/solana"
	"prediction-market-lab/internal/solana/stub"
)

// setupRedis starts a Redis container and returns a connected Client.
func setupRedis(t *testing.T) (*Client, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := New(ctx, ClientConfig{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)

	cleanup := func() {
		client.Close()
		_ = container.Terminate(ctx)
	}
	return client, cleanup
}

func key(b byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func TestAccountCache_GetAccountInfo_ReadThrough(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	program := key(1)
	rpc := stub.NewRPCClient()
	rpc.SetAccount(key(2), program, []byte{1, 2, 3})

	cache := NewAccountCache(client, rpc, WithTTL(time.Minute))

	first, err := cache.GetAccountInfo(ctx, key(2))
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := cache.GetAccountInfo(ctx, key(2))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, program, second.Owner)
	assert.Equal(t, []byte{1, 2, 3}, second.Data)
	assert.Equal(t, 1, rpc.Calls("getAccountInfo"))
}

func TestAccountCache_MissingNotCached(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	rpc := stub.NewRPCClient()
	cache := NewAccountCache(client, rpc)

	info, err := cache.GetAccountInfo(ctx, key(9))
	require.NoError(t, err)
	assert.Nil(t, info)

	_, err = cache.GetAccountInfo(ctx, key(9))
	require.NoError(t, err)
	assert.Equal(t, 2, rpc.Calls("getAccountInfo"))
}

func TestAccountCache_GetMultipleAccounts_FetchesOnlyMisses(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	program := key(1)
	rpc := stub.NewRPCClient()
	rpc.SetAccount(key(2), program, []byte{2})
	rpc.SetAccount(key(3), program, []byte{3})

	cache := NewAccountCache(client, rpc, WithTTL(time.Minute))

	// Warm one entry.
	_, err := cache.GetAccountInfo(ctx, key(2))
	require.NoError(t, err)

	infos, err := cache.GetMultipleAccounts(ctx, []solana.PublicKey{key(3), key(4), key(2)})
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, []byte{3}, infos[0].Data)
	assert.Nil(t, infos[1])
	assert.Equal(t, []byte{2}, infos[2].Data)
	assert.Equal(t, 1, rpc.Calls("getMultipleAccounts"))

	// key(3) is now cached; key(4) still missing upstream.
	_, err = cache.GetMultipleAccounts(ctx, []solana.PublicKey{key(3), key(2)})
	require.NoError(t, err)
	assert.Equal(t, 1, rpc.Calls("getMultipleAccounts"))
}

func TestAccountCache_Expiry(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	rpc := stub.NewRPCClient()
	rpc.SetAccount(key(2), key(1), []byte{1})

	cache := NewAccountCache(client, rpc, WithTTL(time.Second))

	_, err := cache.GetAccountInfo(ctx, key(2))
	require.NoError(t, err)

	time.Sleep(1500 * time.Millisecond)

	_, err = cache.GetAccountInfo(ctx, key(2))
	require.NoError(t, err)
	assert.Equal(t, 2, rpc.Calls("getAccountInfo"))
}

func TestAccountCache_ScansPassThrough(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	program := key(1)
	rpc := stub.NewRPCClient()
	rpc.SetAccount(key(2), program, []byte{1})

	cache := NewAccountCache(client, rpc)

	for i := 0; i < 2; i++ {
		accounts, err := cache.GetProgramAccounts(ctx, program)
		require.NoError(t, err)
		assert.Len(t, accounts, 1)
	}
	assert.Equal(t, 2, rpc.Calls("getProgramAccounts"))
}
