package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryLedger is an in-memory implementation of ILedger for tests and
// local dry runs. Balances live in a mutex-guarded map; Transfer debits
// custody and credits the recipient under one lock acquisition, so the
// debit-and-credit pair is atomic.
type MemoryLedger struct {
	mu       sync.Mutex
	token    common.Address
	custody  common.Address
	balances map[common.Address]*big.Int
}

var _ ILedger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an in-memory ledger with the custody account
// funded at initialBalance.
func NewMemoryLedger(token, custody common.Address, initialBalance *big.Int) *MemoryLedger {
	balances := make(map[common.Address]*big.Int)
	if initialBalance != nil {
		balances[custody] = new(big.Int).Set(initialBalance)
	}

	return &MemoryLedger{
		token:    token,
		custody:  custody,
		balances: balances,
	}
}

// Transfer moves amount from custody to the recipient.
func (l *MemoryLedger) Transfer(_ context.Context, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	custodyBalance := l.balanceLocked(l.custody)
	if custodyBalance.Cmp(amount) < 0 {
		return fmt.Errorf("custody %s holds %s, needs %s: %w",
			l.custody.Hex(), custodyBalance.String(), amount.String(), ErrInsufficientCustodyBalance)
	}

	custodyBalance.Sub(custodyBalance, amount)
	recipientBalance := l.balanceLocked(to)
	recipientBalance.Add(recipientBalance, amount)
	return nil
}

// BalanceOf returns the balance of an account.
func (l *MemoryLedger) BalanceOf(_ context.Context, account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return new(big.Int).Set(l.balanceLocked(account)), nil
}

// Token returns the asset identity.
func (l *MemoryLedger) Token() common.Address {
	return l.token
}

// Custody returns the custody account.
func (l *MemoryLedger) Custody() common.Address {
	return l.custody
}

// balanceLocked returns the live balance value; callers hold l.mu.
func (l *MemoryLedger) balanceLocked(account common.Address) *big.Int {
	if b, ok := l.balances[account]; ok {
		return b
	}
	b := new(big.Int)
	l.balances[account] = b
	return b
}
