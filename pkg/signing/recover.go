package signing

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the expected length of a claim signature (r || s || v).
const SignatureLength = 65

// RecoverSigner recovers the Ethereum address that produced signature over
// digest. Accepts recovery ids in both 0/1 and Ethereum 27/28 form.
func RecoverSigner(digest [32]byte, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: expected %d bytes, got %d", SignatureLength, len(signature))
	}

	// crypto.SigToPub expects the recovery id in the 0-3 range
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id: %d", signature[64])
	}

	pubKey, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
