package artifact

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/dropkit/airdrop-go/pkg/merkle"
	"github.com/dropkit/airdrop-go/pkg/types"
)

// Entry is one recipient's slice of the distribution artifact: the
// allocation plus everything needed to claim it.
type Entry struct {
	Account common.Address `json:"account"`
	Amount  *hexutil.Big   `json:"amount"`
	Leaf    common.Hash    `json:"leaf"`
	Proof   []common.Hash  `json:"proof"`
}

// Artifact is the campaign's sole persisted cross-process format,
// produced once by the tree builder and distributed out of band.
// Recomputing it from the same input list reproduces byte-identical
// digests; only the campaign id differs between builds.
type Artifact struct {
	CampaignID string         `json:"campaign_id"`
	Token      common.Address `json:"token"`
	Root       common.Hash    `json:"root"`
	Entries    []Entry        `json:"entries"`
}

// Generate builds the merkle tree over records and assembles the full
// distribution artifact. Entry order matches record order.
func Generate(records []*types.AllocationRecord, token common.Address) (*Artifact, error) {
	tree, err := merkle.BuildAllocationTree(records)
	if err != nil {
		return nil, fmt.Errorf("failed to build allocation tree: %w", err)
	}

	entries := make([]Entry, len(records))
	for i, record := range records {
		proof, err := tree.GenerateProof(i)
		if err != nil {
			return nil, fmt.Errorf("failed to generate proof for record %d: %w", i, err)
		}

		siblings := make([]common.Hash, len(proof.Siblings))
		for j, s := range proof.Siblings {
			siblings[j] = common.Hash(s)
		}

		entries[i] = Entry{
			Account: record.Account,
			Amount:  (*hexutil.Big)(new(big.Int).Set(record.Amount)),
			Leaf:    common.Hash(proof.Leaf),
			Proof:   siblings,
		}
	}

	return &Artifact{
		CampaignID: uuid.NewString(),
		Token:      token,
		Root:       common.Hash(tree.Root),
		Entries:    entries,
	}, nil
}

// EntryFor returns the entry for an account, if present.
func (a *Artifact) EntryFor(account common.Address) (*Entry, bool) {
	for i := range a.Entries {
		if a.Entries[i].Account == account {
			return &a.Entries[i], true
		}
	}
	return nil, false
}

// Verify re-checks every entry's proof against the artifact root.
// Used to validate an artifact before publishing it.
func (a *Artifact) Verify() error {
	if len(a.Entries) == 0 {
		return fmt.Errorf("artifact has no entries")
	}

	for i, entry := range a.Entries {
		leaf, err := merkle.AllocationLeaf(&types.AllocationRecord{
			Account: entry.Account,
			Amount:  (*big.Int)(entry.Amount),
		})
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if leaf != [32]byte(entry.Leaf) {
			return fmt.Errorf("entry %d: stored leaf does not match recomputed leaf", i)
		}

		siblings := make([][32]byte, len(entry.Proof))
		for j, s := range entry.Proof {
			siblings[j] = [32]byte(s)
		}
		if !merkle.VerifyProof(leaf, siblings, [32]byte(a.Root)) {
			return fmt.Errorf("entry %d: proof does not reach root", i)
		}
	}

	return nil
}

// WriteFile writes the artifact as indented JSON.
func (a *Artifact) WriteFile(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact to %s: %w", path, err)
	}

	return nil
}

// ReadFile loads an artifact from disk.
func ReadFile(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact from %s: %w", path, err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}

	return &a, nil
}
