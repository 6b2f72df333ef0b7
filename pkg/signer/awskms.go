package signer

import (
	"context"
	cryptoEcdsa "crypto/ecdsa"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// KMSSigner signs claim digests with an AWS KMS secp256k1 key, so the
// claimant's private key never leaves the HSM. KMS returns DER-encoded
// (r, s) with no recovery id; the signer canonicalizes s to the low half
// of the curve order and searches recovery ids until the expected public
// key recovers.
type KMSSigner struct {
	logger    *zap.Logger
	kmsClient *kms.Client
	keyId     string
	publicKey *cryptoEcdsa.PublicKey
	address   common.Address
}

var _ IClaimSigner = (*KMSSigner)(nil)

// ASN.1 structures for KMS DER output
type asn1EcSig struct {
	R asn1.RawValue
	S asn1.RawValue
}

type asn1EcPublicKey struct {
	EcPublicKeyInfo asn1EcPublicKeyInfo
	PublicKey       asn1.BitString
}

type asn1EcPublicKeyInfo struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}

// NewKMSSigner creates a signer bound to an existing KMS key. The key
// must use the ECC_SECG_P256K1 spec.
func NewKMSSigner(ctx context.Context, awsCfg aws.Config, keyId string, logger *zap.Logger) (*KMSSigner, error) {
	kmsClient := kms.NewFromConfig(awsCfg)

	out, err := kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: aws.String(keyId)})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get public key for KMS key %s", keyId)
	}

	publicKey, err := parseECDSAPublicKey(out.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse public key for KMS key %s", keyId)
	}

	return &KMSSigner{
		logger:    logger,
		kmsClient: kmsClient,
		keyId:     keyId,
		publicKey: publicKey,
		address:   crypto.PubkeyToAddress(*publicKey),
	}, nil
}

// Address returns the Ethereum address derived from the KMS public key.
func (s *KMSSigner) Address() common.Address {
	return s.address
}

// SignDigest signs the digest via KMS and reassembles an Ethereum-style
// 65-byte signature with the recovery id in 27/28 form.
func (s *KMSSigner) SignDigest(ctx context.Context, digest [32]byte) ([]byte, error) {
	signOutput, err := s.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyId),
		Message:          digest[:],
		SigningAlgorithm: kmstypes.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      kmstypes.MessageTypeDigest,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "KMS sign failed for key %s", s.keyId)
	}

	var sigAsn1 asn1EcSig
	if _, err := asn1.Unmarshal(signOutput.Signature, &sigAsn1); err != nil {
		return nil, errors.Wrap(err, "failed to parse KMS signature DER")
	}

	r := new(big.Int).SetBytes(sigAsn1.R.Bytes)
	sVal := new(big.Int).SetBytes(sigAsn1.S.Bytes)

	// secp256k1 curve order for malleability protection
	curveOrder, _ := new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
	halfOrder := new(big.Int).Rsh(curveOrder, 1)

	// Low-S canonicalization
	if sVal.Cmp(halfOrder) > 0 {
		sVal = new(big.Int).Sub(curveOrder, sVal)
	}

	rBytes := r.FillBytes(make([]byte, 32))
	sBytes := sVal.FillBytes(make([]byte, 32))

	// Try recovery ids 0-3 until the expected public key recovers
	for recoveryId := 0; recoveryId < 4; recoveryId++ {
		signature := make([]byte, 65)
		copy(signature[0:32], rBytes)
		copy(signature[32:64], sBytes)
		signature[64] = byte(recoveryId)

		recoveredPubKeyBytes, err := crypto.Ecrecover(digest[:], signature)
		if err != nil {
			s.logger.Debug("Ecrecover failed",
				zap.Int("recoveryId", recoveryId),
				zap.Error(err))
			continue
		}

		recoveredPubKey, err := crypto.UnmarshalPubkey(recoveredPubKeyBytes)
		if err != nil {
			s.logger.Warn("Failed to unmarshal recovered public key",
				zap.Int("recoveryId", recoveryId),
				zap.Error(err))
			continue
		}

		if recoveredPubKey.X.Cmp(s.publicKey.X) == 0 && recoveredPubKey.Y.Cmp(s.publicKey.Y) == 0 {
			signature[64] = byte(27 + recoveryId)
			return signature, nil
		}
	}

	return nil, fmt.Errorf("could not determine valid recovery ID - signature recovery failed")
}

// parseECDSAPublicKey parses the DER-encoded public key from KMS
func parseECDSAPublicKey(derBytes []byte) (*cryptoEcdsa.PublicKey, error) {
	var asn1pubk asn1EcPublicKey
	if _, err := asn1.Unmarshal(derBytes, &asn1pubk); err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 public key: %w", err)
	}

	return crypto.UnmarshalPubkey(asn1pubk.PublicKey.Bytes)
}
