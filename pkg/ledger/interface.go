package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientCustodyBalance is returned when a transfer would overdraw
// the custody balance. This is an operational/funding failure, not a
// caller error; the verifier propagates it unmodified so operators can
// refund custody.
var ErrInsufficientCustodyBalance = errors.New("insufficient custody balance")

// ILedger is the external fungible-asset collaborator. The verifier never
// mints or burns; it only moves tokens out of a pre-funded custody balance.
// Implementations must make Transfer atomic: it either debits custody and
// credits the recipient in full, or changes nothing.
type ILedger interface {
	// Transfer moves amount from the custody balance to the recipient.
	// Returns an error wrapping ErrInsufficientCustodyBalance if custody
	// cannot cover the amount.
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error

	// BalanceOf returns the ledger balance of an account.
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)

	// Token returns the identity of the asset this ledger moves.
	Token() common.Address

	// Custody returns the address holding the pre-funded campaign balance.
	Custody() common.Address
}
