package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// IClaimSigner produces claim-authorization signatures. The signer's
// address must equal the claiming account for the verifier to accept the
// claim; the party submitting the claim may be anyone.
type IClaimSigner interface {
	// Address returns the Ethereum address this signer signs for.
	Address() common.Address

	// SignDigest signs a 32-byte claim digest, returning a 65-byte
	// r || s || v signature with a recovery id the verifier accepts.
	SignDigest(ctx context.Context, digest [32]byte) ([]byte, error)
}
