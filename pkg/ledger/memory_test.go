package ledger

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testToken   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testCustody = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func TestMemoryLedger_Transfer(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(testToken, testCustody, big.NewInt(1000))

	recipient := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	err := ledger.Transfer(ctx, recipient, big.NewInt(400))
	require.NoError(t, err)

	custodyBalance, err := ledger.BalanceOf(ctx, testCustody)
	require.NoError(t, err)
	assert.Zero(t, custodyBalance.Cmp(big.NewInt(600)))

	recipientBalance, err := ledger.BalanceOf(ctx, recipient)
	require.NoError(t, err)
	assert.Zero(t, recipientBalance.Cmp(big.NewInt(400)))
}

func TestMemoryLedger_InsufficientCustody(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(testToken, testCustody, big.NewInt(100))

	recipient := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	err := ledger.Transfer(ctx, recipient, big.NewInt(101))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientCustodyBalance)

	// Failed transfer changes nothing
	custodyBalance, err := ledger.BalanceOf(ctx, testCustody)
	require.NoError(t, err)
	assert.Zero(t, custodyBalance.Cmp(big.NewInt(100)))

	recipientBalance, err := ledger.BalanceOf(ctx, recipient)
	require.NoError(t, err)
	assert.Zero(t, recipientBalance.Sign())
}

func TestMemoryLedger_ConcurrentTransfers(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(testToken, testCustody, big.NewInt(10))

	recipient := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	// 20 concurrent unit transfers against a custody of 10: exactly 10 succeed
	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- ledger.Transfer(ctx, recipient, big.NewInt(1))
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientCustodyBalance)
		}
	}
	assert.Equal(t, 10, succeeded)

	recipientBalance, err := ledger.BalanceOf(ctx, recipient)
	require.NoError(t, err)
	assert.Zero(t, recipientBalance.Cmp(big.NewInt(10)))
}

func TestMemoryLedger_Identity(t *testing.T) {
	ledger := NewMemoryLedger(testToken, testCustody, nil)
	assert.Equal(t, testToken, ledger.Token())
	assert.Equal(t, testCustody, ledger.Custody())
}
