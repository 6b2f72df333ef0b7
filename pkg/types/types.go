package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// AllocationRecord is one whitelist entry: an account and the token amount
// it may claim. Records are immutable once included in a tree.
type AllocationRecord struct {
	Account common.Address `json:"account"`
	Amount  *big.Int       `json:"amount"`
}

// Validate checks that the record can be encoded as (address, uint256).
func (r *AllocationRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("allocation record is nil")
	}
	if r.Amount == nil {
		return fmt.Errorf("allocation record for %s has nil amount", r.Account.Hex())
	}
	if r.Amount.Sign() < 0 {
		return fmt.Errorf("allocation record for %s has negative amount %s", r.Account.Hex(), r.Amount.String())
	}
	if r.Amount.BitLen() > 256 {
		return fmt.Errorf("allocation record for %s has amount exceeding uint256", r.Account.Hex())
	}
	return nil
}

// ClaimRecord is the durable per-account claim state written when a claim
// commits. Account -> ClaimRecord is the sole mutable state in the verifier.
type ClaimRecord struct {
	Account   common.Address `json:"account"`
	Amount    *big.Int       `json:"amount"`
	ClaimedAt time.Time      `json:"claimed_at"`
}

// ClaimEvent is the observable record of a successful claim.
type ClaimEvent struct {
	Account common.Address
	Amount  *big.Int
}
