package claims

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/dropkit/airdrop-go/pkg/types"
)

// IClaimStore defines the interface for persisting per-account claim state.
// All implementations must be thread-safe as claim requests are concurrent.
//
// The store is the sole source of the at-most-once guarantee: MarkClaimed
// must behave as an atomic compare-and-set so two concurrent callers can
// never both observe the account as unclaimed and both commit.
type IClaimStore interface {
	// MarkClaimed transitions the account's flag false->true atomically.
	// Returns alreadyClaimed=true (and no error) if the flag was already
	// set. Returns error only on storage failure.
	MarkClaimed(record *types.ClaimRecord) (alreadyClaimed bool, err error)

	// UnmarkClaimed clears the account's flag. Used only to roll back a
	// commit whose payout failed, so the failed claim leaves no state.
	// Idempotent - returns nil if the flag was not set.
	UnmarkClaimed(account common.Address) error

	// IsClaimed reports whether the account has claimed.
	// Returns error only on storage failure.
	IsClaimed(account common.Address) (bool, error)

	// GetClaim retrieves the claim record for an account.
	// Returns nil if the account has not claimed, error only on storage failure.
	GetClaim(account common.Address) (*types.ClaimRecord, error)

	// ListClaims returns all claim records sorted by account address
	// (ascending). Returns empty slice if no claims exist, error only on
	// storage failure. Used for campaign auditing.
	ListClaims() ([]*types.ClaimRecord, error)

	// Close cleanly shuts down the store.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the store is operational.
	// Returns nil if healthy, error describing the problem if not.
	// Should be called during server startup to fail fast.
	HealthCheck() error
}
