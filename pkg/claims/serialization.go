package claims

import (
	"encoding/json"
	"fmt"

	"github.com/dropkit/airdrop-go/pkg/types"
)

// MarshalClaimRecord serializes a ClaimRecord to JSON bytes.
// Uses standard JSON marshaling - big.Int has built-in JSON support.
func MarshalClaimRecord(record *types.ClaimRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("cannot marshal nil ClaimRecord")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ClaimRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalClaimRecord deserializes a ClaimRecord from JSON bytes.
func UnmarshalClaimRecord(data []byte) (*types.ClaimRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var record types.ClaimRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to ClaimRecord: %w", err)
	}

	return &record, nil
}
