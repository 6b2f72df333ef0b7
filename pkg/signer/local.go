package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// LocalSigner signs claim digests with an in-process secp256k1 key.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ IClaimSigner = (*LocalSigner)(nil)

// NewLocalSigner creates a signer from a hex-encoded private key.
func NewLocalSigner(privateKeyHex string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// NewLocalSignerFromKey wraps an existing key, for tests.
func NewLocalSignerFromKey(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address returns the signer's address.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// SignDigest signs the digest; the recovery id is returned in 0/1 form.
func (s *LocalSigner) SignDigest(_ context.Context, digest [32]byte) ([]byte, error) {
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return sig, nil
}
