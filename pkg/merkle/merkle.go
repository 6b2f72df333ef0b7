package merkle

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dropkit/airdrop-go/pkg/types"
)

// BuildAllocationTree creates a binary merkle tree from allocation records.
// Leaves keep the input-record order; order affects sibling paths but not
// the root's validity as a commitment.
//
// The tree uses keccak256 hashing for Solidity compatibility. Pairs are
// combined with sorted-pair hashing, and an odd trailing node at any level
// is promoted unchanged to the next level. The verification routine in
// VerifyProof applies the identical rules.
func BuildAllocationTree(records []*types.AllocationRecord) (*AllocationTree, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("cannot build merkle tree from empty allocation list")
	}

	// Hash all leaves
	leaves := make([][32]byte, len(records))
	for i, record := range records {
		leaf, err := AllocationLeaf(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		leaves[i] = leaf
	}

	// Build tree levels bottom-up
	levels := make([][][32]byte, 0)
	levels = append(levels, leaves)

	currentLevel := leaves
	for len(currentLevel) > 1 {
		nextLevel := make([][32]byte, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			if i+1 < len(currentLevel) {
				nextLevel = append(nextLevel, hashPair(currentLevel[i], currentLevel[i+1]))
			} else {
				// Odd number of nodes: promote the last one unchanged
				nextLevel = append(nextLevel, currentLevel[i])
			}
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	return &AllocationTree{
		Leaves: leaves,
		Root:   currentLevel[0],
		levels: levels,
	}, nil
}

// GenerateProof creates a merkle proof for the leaf at the given index.
// The proof consists of sibling hashes along the path from leaf to root;
// a single-record tree yields an empty proof.
func (t *AllocationTree) GenerateProof(leafIndex int) (*Proof, error) {
	if leafIndex < 0 || leafIndex >= len(t.Leaves) {
		return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", leafIndex, len(t.Leaves))
	}

	siblings := make([][32]byte, 0)
	index := leafIndex

	// Traverse from leaf to root, collecting sibling hashes
	for level := 0; level < len(t.levels)-1; level++ {
		currentLevel := t.levels[level]

		var siblingIndex int
		if index%2 == 0 {
			siblingIndex = index + 1
		} else {
			siblingIndex = index - 1
		}

		// The trailing node of an odd level was promoted without a
		// sibling; the proof skips that level.
		if siblingIndex < len(currentLevel) {
			siblings = append(siblings, currentLevel[siblingIndex])
		}

		index = index / 2
	}

	return &Proof{
		Leaf:     t.Leaves[leafIndex],
		Siblings: siblings,
	}, nil
}

// VerifyProof checks that a leaf is included under the given root by
// folding the sibling path with the same sorted-pair combine used during
// construction.
func VerifyProof(leaf [32]byte, siblings [][32]byte, root [32]byte) bool {
	currentHash := leaf
	for _, sibling := range siblings {
		currentHash = hashPair(currentHash, sibling)
	}
	return currentHash == root
}

// AllocationLeaf computes the leaf digest for one allocation record:
// keccak256(keccak256(abi.encode(account, amount))). The double hash
// defeats second-preimage attacks against the inner encoding, and the
// scheme matches what an on-chain verifier computes from calldata.
func AllocationLeaf(record *types.AllocationRecord) ([32]byte, error) {
	if err := record.Validate(); err != nil {
		return [32]byte{}, err
	}

	encoded, err := encodeAllocation(record.Account, record.Amount)
	if err != nil {
		return [32]byte{}, fmt.Errorf("failed to encode allocation: %w", err)
	}

	inner := crypto.Keccak256Hash(encoded)
	return [32]byte(crypto.Keccak256Hash(inner.Bytes())), nil
}

// encodeAllocation ABI-encodes (address, uint256) into the canonical
// 64-byte leaf preimage.
func encodeAllocation(account common.Address, amount *big.Int) ([]byte, error) {
	addressType, err := abi.NewType("address", "", nil)
	if err != nil {
		return nil, err
	}
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	arguments := abi.Arguments{{Type: addressType}, {Type: uint256Type}}

	return arguments.Pack(account, amount)
}

// hashPair computes keccak256 of the two hashes in ascending byte order.
// Sorting makes the combine commutative, so proofs carry no positional
// information. Builder and verifier must use this rule identically.
func hashPair(a, b [32]byte) [32]byte {
	data := make([]byte, 64)
	if bytes.Compare(a[:], b[:]) <= 0 {
		copy(data[0:32], a[:])
		copy(data[32:64], b[:])
	} else {
		copy(data[0:32], b[:])
		copy(data[32:64], a[:])
	}

	return [32]byte(crypto.Keccak256Hash(data))
}
