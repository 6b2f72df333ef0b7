package signing

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ClaimPrimaryType is the EIP-712 primary type for claim authorizations.
const ClaimPrimaryType = "AirdropClaim"

// claimTypes is the EIP-712 type set. The digest binds (account, amount)
// to the verifier's domain so a signature for one deployment can never be
// replayed against another.
var claimTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	ClaimPrimaryType: []apitypes.Type{
		{Name: "account", Type: "address"},
		{Name: "amount", Type: "uint256"},
	},
}

// Domain identifies one verifier deployment. Baked into every signed
// digest; immutable for the campaign's lifetime.
type Domain struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           uint64         `json:"chain_id"`
	VerifyingContract common.Address `json:"verifying_contract"`
}

// Validate checks the domain is fully specified.
func (d *Domain) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("domain name cannot be empty")
	}
	if d.Version == "" {
		return fmt.Errorf("domain version cannot be empty")
	}
	if d.ChainID == 0 {
		return fmt.Errorf("domain chain id cannot be zero")
	}
	if d.VerifyingContract == (common.Address{}) {
		return fmt.Errorf("domain verifying contract cannot be the zero address")
	}
	return nil
}

// ClaimDigest computes the canonical EIP-712 digest an account must sign
// to authorize claiming amount under this domain. Off-chain signers call
// this (directly or via the server's /digest endpoint) before signing.
func ClaimDigest(domain Domain, account common.Address, amount *big.Int) ([32]byte, error) {
	if amount == nil {
		return [32]byte{}, fmt.Errorf("amount cannot be nil")
	}

	typedData := apitypes.TypedData{
		Types:       claimTypes,
		PrimaryType: ClaimPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(domain.ChainID)),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"account": account.Hex(),
			"amount":  (*math.HexOrDecimal256)(amount),
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return [32]byte{}, fmt.Errorf("failed to hash typed data: %w", err)
	}

	var out [32]byte
	copy(out[:], digest)
	return out, nil
}
