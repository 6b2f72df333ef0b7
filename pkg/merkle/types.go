package merkle

// AllocationTree is a binary merkle tree built over allocation records.
// The tree uses keccak256 hashing for Solidity compatibility.
type AllocationTree struct {
	// Leaves contains the leaf digests in input-record order
	Leaves [][32]byte

	// Root is the merkle root hash, the sole on-chain commitment
	Root [32]byte

	// levels stores all tree levels for proof generation
	// levels[0] = leaves, levels[len-1] = root
	levels [][][32]byte
}

// Proof is the minimal sibling-digest path proving one leaf's membership
// under a root. Pair hashing is commutative (sorted-pair), so no leaf
// index is needed to verify.
type Proof struct {
	// Leaf is the digest of the record being proven
	Leaf [32]byte

	// Siblings contains the sibling hashes from leaf to root.
	// Siblings[0] is adjacent to the leaf; levels where the node was
	// promoted without a sibling contribute no element.
	Siblings [][32]byte
}
