package artifact

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dropkit/airdrop-go/pkg/types"
)

// allocationInput is the whitelist input format: amounts accepted as
// decimal strings or 0x-prefixed hex.
type allocationInput struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// ReadAllocationsFile loads a whitelist file: a JSON array of
// {account, amount} objects, in final leaf order.
func ReadAllocationsFile(path string) ([]*types.AllocationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read allocations from %s: %w", path, err)
	}

	var inputs []allocationInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to parse allocations file: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("allocations file %s contains no records", path)
	}

	records := make([]*types.AllocationRecord, len(inputs))
	for i, in := range inputs {
		if !common.IsHexAddress(in.Account) {
			return nil, fmt.Errorf("record %d: invalid account address %q", i, in.Account)
		}

		amount, ok := parseAmount(in.Amount)
		if !ok {
			return nil, fmt.Errorf("record %d: invalid amount %q", i, in.Amount)
		}

		records[i] = &types.AllocationRecord{
			Account: common.HexToAddress(in.Account),
			Amount:  amount,
		}
		if err := records[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	return records, nil
}

func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}
