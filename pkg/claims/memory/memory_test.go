package memory

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropkit/airdrop-go/pkg/types"
)

func testRecord(addr int64, amount int64) *types.ClaimRecord {
	return &types.ClaimRecord{
		Account:   common.BigToAddress(big.NewInt(addr)),
		Amount:    big.NewInt(amount),
		ClaimedAt: time.Now().UTC(),
	}
}

func TestMemoryClaimStore_MarkAndGet(t *testing.T) {
	store := NewMemoryClaimStore()
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
	assert.Equal(t, record.Account, loaded.Account)
	assert.Zero(t, record.Amount.Cmp(loaded.Amount))
}

func TestMemoryClaimStore_MarkTwice(t *testing.T) {
	store := NewMemoryClaimStore()
	defer func() { _ = store.Close() }()

	record := testRecord(1, 100)

	already, err := store.MarkClaimed(record)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = store.MarkClaimed(record)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestMemoryClaimStore_Unmark(t *testing.T) {
	store := NewMemoryClaimStore()
	defer func() { _ = store.Close() }()

	record := testRecord(1, 100)

	_, err := store.MarkClaimed(record)
	require.NoError(t, err)

	err = store.UnmarkClaimed(record.Account)
	require.NoError(t, err)

	claimed, err := store.IsClaimed(record.Account)
	require.NoError(t, err)
	assert.False(t, claimed)

	// Idempotent
	err = store.UnmarkClaimed(record.Account)
	require.NoError(t, err)
}

func TestMemoryClaimStore_GetMissing(t *testing.T) {
	store := NewMemoryClaimStore()
	defer func() { _ = store.Close() }()

	loaded, err := store.GetClaim(common.BigToAddress(big.NewInt(99)))
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryClaimStore_List(t *testing.T) {
	store := NewMemoryClaimStore()
	defer func() { _ = store.Close() }()

	for i := int64(5); i >= 1; i-- {
		_, err := store.MarkClaimed(testRecord(i, i*10))
		require.NoError(t, err)
	}

	records, err := store.ListClaims()
	require.NoError(t, err)
	require.Len(t, records, 5)

	// Sorted by account ascending
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].Account.Cmp(records[i].Account) < 0)
	}
}

func TestMemoryClaimStore_ConcurrentMark(t *testing.T) {
	store := NewMemoryClaimStore()
	defer func() { _ = store.Close() }()

	record := testRecord(1, 100)

	const goroutines = 32
	wins := make(chan bool, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			already, err := store.MarkClaimed(record)
			require.NoError(t, err)
			wins <- !already
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one caller should win the flag")
}

func TestMemoryClaimStore_Closed(t *testing.T) {
	store := NewMemoryClaimStore()
	require.NoError(t, store.Close())

	_, err := store.MarkClaimed(testRecord(1, 1))
	assert.Error(t, err)
	_, err = store.IsClaimed(common.BigToAddress(big.NewInt(1)))
	assert.Error(t, err)
	assert.Error(t, store.HealthCheck())
}

func TestMemoryClaimStore_DeepCopy(t *testing.T) {
	store := NewMemoryClaimStore()
	defer func() { _ = store.Close() }()

	record := testRecord(1, 100)
	_, err := store.MarkClaimed(record)
	require.NoError(t, err)

	// Mutating the caller's record must not affect stored state
	record.Amount.SetInt64(999)

	loaded, err := store.GetClaim(record.Account)
	require.NoError(t, err)
	assert.Zero(t, loaded.Amount.Cmp(big.NewInt(100)))
}
