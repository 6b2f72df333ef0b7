package memory

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dropkit/airdrop-go/pkg/claims"
	"github.com/dropkit/airdrop-go/pkg/types"
)

// MemoryClaimStore is an in-memory implementation of IClaimStore.
// All data is lost when the process exits, so it is suitable for tests
// and local single-run campaigns only.
//
// Thread-safe using sync.Mutex; MarkClaimed is a compare-and-set under
// the lock. Deep copies data to prevent external mutation.
type MemoryClaimStore struct {
	mu sync.Mutex

	// Claim state: account -> ClaimRecord
	records map[common.Address]*types.ClaimRecord

	// Closed flag
	closed bool
}

var _ claims.IClaimStore = (*MemoryClaimStore)(nil)

// NewMemoryClaimStore creates a new in-memory claim store.
func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{
		records: make(map[common.Address]*types.ClaimRecord),
	}
}

// MarkClaimed sets the account's claim flag if not already set.
func (m *MemoryClaimStore) MarkClaimed(record *types.ClaimRecord) (bool, error) {
	if record == nil {
		return false, fmt.Errorf("cannot save nil ClaimRecord")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, fmt.Errorf("claim store is closed")
	}

	if _, exists := m.records[record.Account]; exists {
		return true, nil
	}

	m.records[record.Account] = deepCopyClaimRecord(record)
	return false, nil
}

// UnmarkClaimed clears the account's claim flag.
func (m *MemoryClaimStore) UnmarkClaimed(account common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("claim store is closed")
	}

	delete(m.records, account)
	return nil
}

// IsClaimed reports whether the account has claimed.
func (m *MemoryClaimStore) IsClaimed(account common.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, fmt.Errorf("claim store is closed")
	}

	_, exists := m.records[account]
	return exists, nil
}

// GetClaim retrieves the claim record for an account.
func (m *MemoryClaimStore) GetClaim(account common.Address) (*types.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("claim store is closed")
	}

	record, exists := m.records[account]
	if !exists {
		return nil, nil // Not found is not an error
	}

	return deepCopyClaimRecord(record), nil
}

// ListClaims returns all claim records sorted by account address.
func (m *MemoryClaimStore) ListClaims() ([]*types.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("claim store is closed")
	}

	result := make([]*types.ClaimRecord, 0, len(m.records))
	for _, record := range m.records {
		result = append(result, deepCopyClaimRecord(record))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Account.Cmp(result[j].Account) < 0
	})

	return result, nil
}

// Close shuts down the store.
func (m *MemoryClaimStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the store is operational.
func (m *MemoryClaimStore) HealthCheck() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("claim store is closed")
	}

	return nil
}

func deepCopyClaimRecord(r *types.ClaimRecord) *types.ClaimRecord {
	if r == nil {
		return nil
	}

	var amount *big.Int
	if r.Amount != nil {
		amount = new(big.Int).Set(r.Amount)
	}

	return &types.ClaimRecord{
		Account:   r.Account,
		Amount:    amount,
		ClaimedAt: r.ClaimedAt,
	}
}
