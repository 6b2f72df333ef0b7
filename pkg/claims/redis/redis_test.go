package redis

import (
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropkit/airdrop-go/pkg/logger"
	"github.com/dropkit/airdrop-go/pkg/types"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test if Redis is not available. A unique key
// prefix per test keeps runs isolated on a shared instance.
func requireRedis(t *testing.T) *RedisClaimStore {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15, // Use DB 15 for tests to avoid conflicts
		KeyPrefix: "test:" + uuid.NewString() + ":",
	}

	rs, err := NewRedisClaimStore(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}

	return rs
}

func testRecord(addr int64, amount int64) *types.ClaimRecord {
	return &types.ClaimRecord{
		Account:   common.BigToAddress(big.NewInt(addr)),
		Amount:    big.NewInt(amount),
		ClaimedAt: time.Now().UTC(),
	}
}

func TestRedisClaimStore_MarkAndGet(t *testing.T) {
	store := requireRedis(t)
	defer func() { _ = store.Close() }()

	record := testRecord(1, 100)

	already, err := store.MarkClaimed(record)
	require.NoError(t, err)
	assert.False(t, already)

	claimed, err := store.IsClaimed(record.Account)
	require.NoError(t, err)
	assert.True(t, claimed)

	loaded, err := store.GetClaim(record.Account)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Zero(t, record.Amount.Cmp(loaded.Amount))
}

func TestRedisClaimStore_MarkTwice(t *testing.T) {
	store := requireRedis(t)
	defer func() { _ = store.Close() }()

	record := testRecord(2, 50)

	already, err := store.MarkClaimed(record)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = store.MarkClaimed(record)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestRedisClaimStore_UnmarkAndList(t *testing.T) {
	store := requireRedis(t)
	defer func() { _ = store.Close() }()

	for i := int64(1); i <= 3; i++ {
		_, err := store.MarkClaimed(testRecord(i, i))
		require.NoError(t, err)
	}

	records, err := store.ListClaims()
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.NoError(t, store.UnmarkClaimed(records[0].Account))

	records, err = store.ListClaims()
	require.NoError(t, err)
	require.Len(t, records, 2)
}
