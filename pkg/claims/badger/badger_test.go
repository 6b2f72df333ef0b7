package badger

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropkit/airdrop-go/pkg/logger"
	"github.com/dropkit/airdrop-go/pkg/types"
)

func newTestStore(t *testing.T) *BadgerClaimStore {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	store, err := NewBadgerClaimStore(t.TempDir(), testLogger)
	require.NoError(t, err)
	return store
}

func testRecord(addr int64, amount int64) *types.ClaimRecord {
	return &types.ClaimRecord{
		Account:   common.BigToAddress(big.NewInt(addr)),
		Amount:    big.NewInt(amount),
		ClaimedAt: time.Now().UTC(),
	}
}

func TestBadgerClaimStore_MarkAndGet(t *testing.T) {
	store := newTestStore(t)
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

func TestBadgerClaimStore_MarkTwice(t *testing.T) {
	store := newTestStore(t)
	defer func() { _ = store.Close() }()

	record := testRecord(1, 100)

	already, err := store.MarkClaimed(record)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = store.MarkClaimed(record)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestBadgerClaimStore_UnmarkRollback(t *testing.T) {
	store := newTestStore(t)
	defer func() { _ = store.Close() }()

	record := testRecord(1, 100)

	_, err := store.MarkClaimed(record)
	require.NoError(t, err)

	require.NoError(t, store.UnmarkClaimed(record.Account))

	claimed, err := store.IsClaimed(record.Account)
	require.NoError(t, err)
	assert.False(t, claimed)

	// The account can claim again after rollback
	already, err := store.MarkClaimed(record)
	require.NoError(t, err)
	assert.False(t, already)
}

func TestBadgerClaimStore_List(t *testing.T) {
	store := newTestStore(t)
	defer func() { _ = store.Close() }()

	for i := int64(1); i <= 4; i++ {
		_, err := store.MarkClaimed(testRecord(i, i*25))
		require.NoError(t, err)
	}

	records, err := store.ListClaims()
	require.NoError(t, err)
	require.Len(t, records, 4)

	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].Account.Cmp(records[i].Account) < 0)
	}
}

func TestBadgerClaimStore_PersistsAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	store, err := NewBadgerClaimStore(tmpDir, testLogger)
	require.NoError(t, err)

	record := testRecord(7, 700)
	_, err = store.MarkClaimed(record)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopen and confirm the flag survived
	store, err = NewBadgerClaimStore(tmpDir, testLogger)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	claimed, err := store.IsClaimed(record.Account)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestBadgerClaimStore_ConcurrentMark(t *testing.T) {
	store := newTestStore(t)
	defer func() { _ = store.Close() }()

	record := testRecord(1, 100)

	const goroutines = 16
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

func TestBadgerClaimStore_CloseIdempotent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err := store.IsClaimed(common.BigToAddress(big.NewInt(1)))
	assert.Error(t, err)
	assert.Error(t, store.HealthCheck())
}

func TestBadgerClaimStore_HealthCheck(t *testing.T) {
	store := newTestStore(t)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.HealthCheck())
}
