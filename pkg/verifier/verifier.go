package verifier

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dropkit/airdrop-go/pkg/claims"
	"github.com/dropkit/airdrop-go/pkg/ledger"
	"github.com/dropkit/airdrop-go/pkg/merkle"
	"github.com/dropkit/airdrop-go/pkg/signing"
	"github.com/dropkit/airdrop-go/pkg/types"
)

// Config is the verifier's immutable configuration, bound once at
// construction and exposed only through read-only accessors.
type Config struct {
	// Root is the committed merkle root for the campaign
	Root [32]byte

	// Domain is this deployment's EIP-712 identity. Folded into every
	// claim digest so signatures cannot replay across deployments.
	Domain signing.Domain
}

// Validate checks the configuration is complete.
func (c *Config) Validate() error {
	if c.Root == ([32]byte{}) {
		return fmt.Errorf("merkle root cannot be empty")
	}
	if err := c.Domain.Validate(); err != nil {
		return fmt.Errorf("invalid domain: %w", err)
	}
	return nil
}

// Verifier authorizes airdrop claims: a claim succeeds exactly once per
// whitelisted account, and only with a valid membership proof and a valid
// signature by the claiming account.
//
// The claim store's compare-and-set is the at-most-once guarantee; the
// verifier itself holds no mutable claim state.
type Verifier struct {
	config Config
	store  claims.IClaimStore
	ledger ledger.ILedger
	logger *zap.Logger

	obsMu     sync.RWMutex
	observers []func(types.ClaimEvent)
}

// NewVerifier creates a claim verifier over the given store and ledger.
func NewVerifier(config Config, store claims.IClaimStore, l ledger.ILedger, logger *zap.Logger) (*Verifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid verifier config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("claim store cannot be nil")
	}
	if l == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}

	return &Verifier{
		config: config,
		store:  store,
		ledger: l,
		logger: logger,
	}, nil
}

// Claim verifies and commits one claim. On success the account is marked
// claimed, amount is transferred from custody, and a claim event is
// emitted; any failure leaves all state unchanged.
//
// The already-claimed guard runs before the cryptographic checks to bound
// wasted work on repeat calls. Signature and proof must both pass before
// any state mutation.
func (v *Verifier) Claim(ctx context.Context, account common.Address, amount *big.Int, proof [][32]byte, signature []byte) (*types.ClaimRecord, error) {
	// 1. Guard: cheap check before expensive ones
	claimed, err := v.store.IsClaimed(account)
	if err != nil {
		return nil, fmt.Errorf("failed to check claim state: %w", err)
	}
	if claimed {
		return nil, fmt.Errorf("account %s: %w", account.Hex(), ErrAlreadyClaimed)
	}

	// 2. Signature: recover the signer of the domain-bound digest.
	// The transaction submitter need not equal the account; only the
	// signature binds the claim to its rightful owner.
	digest, err := signing.ClaimDigest(v.config.Domain, account, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to compute claim digest: %w", err)
	}
	signer, err := signing.RecoverSigner(digest, signature)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidSignature)
	}
	if signer != account {
		return nil, fmt.Errorf("recovered signer %s does not match account %s: %w",
			signer.Hex(), account.Hex(), ErrInvalidSignature)
	}

	// 3. Leaf recomputation with the builder's exact encoding
	leaf, err := merkle.AllocationLeaf(&types.AllocationRecord{Account: account, Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidProof)
	}

	// 4. Proof check against the committed root
	if !merkle.VerifyProof(leaf, proof, v.config.Root) {
		return nil, fmt.Errorf("account %s amount %s: %w", account.Hex(), amount.String(), ErrInvalidProof)
	}

	// 5. Commit. MarkClaimed is a compare-and-set, so two racing callers
	// that both passed the guard resolve here: one wins, one gets
	// ErrAlreadyClaimed. A failed payout rolls the flag back so the
	// commit is all-or-nothing.
	record := &types.ClaimRecord{
		Account:   account,
		Amount:    new(big.Int).Set(amount),
		ClaimedAt: time.Now().UTC(),
	}
	already, err := v.store.MarkClaimed(record)
	if err != nil {
		return nil, fmt.Errorf("failed to persist claim: %w", err)
	}
	if already {
		return nil, fmt.Errorf("account %s: %w", account.Hex(), ErrAlreadyClaimed)
	}

	if err := v.ledger.Transfer(ctx, account, amount); err != nil {
		if rollbackErr := v.store.UnmarkClaimed(account); rollbackErr != nil {
			// The flag is stuck set with no payout; needs operator attention
			v.logger.Sugar().Errorw("Failed to roll back claim flag after payout failure",
				"account", account.Hex(), "error", rollbackErr)
		}
		return nil, err
	}

	v.logger.Sugar().Infow("Claim committed",
		"account", account.Hex(),
		"amount", amount.String(),
		"token", v.ledger.Token().Hex(),
	)
	v.notify(types.ClaimEvent{Account: account, Amount: new(big.Int).Set(amount)})

	return record, nil
}

// ClaimDigest reproduces the canonical signing digest for (account,
// amount) so off-chain signers can compute exactly what must be signed.
func (v *Verifier) ClaimDigest(account common.Address, amount *big.Int) ([32]byte, error) {
	return signing.ClaimDigest(v.config.Domain, account, amount)
}

// Root returns the committed merkle root.
func (v *Verifier) Root() [32]byte {
	return v.config.Root
}

// Domain returns the verifier's EIP-712 identity.
func (v *Verifier) Domain() signing.Domain {
	return v.config.Domain
}

// Token returns the identity of the distributed asset.
func (v *Verifier) Token() common.Address {
	return v.ledger.Token()
}

// IsClaimed reports whether the account has already claimed.
func (v *Verifier) IsClaimed(account common.Address) (bool, error) {
	return v.store.IsClaimed(account)
}

// OnClaim registers an observer invoked synchronously after each
// successful commit. Observers are for auditability, not correctness.
func (v *Verifier) OnClaim(fn func(types.ClaimEvent)) {
	v.obsMu.Lock()
	defer v.obsMu.Unlock()
	v.observers = append(v.observers, fn)
}

func (v *Verifier) notify(event types.ClaimEvent) {
	v.obsMu.RLock()
	defer v.obsMu.RUnlock()
	for _, fn := range v.observers {
		fn(event)
	}
}
