package server

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dropkit/airdrop-go/pkg/ledger"
	"github.com/dropkit/airdrop-go/pkg/types"
	"github.com/dropkit/airdrop-go/pkg/verifier"
)

// Machine-readable error kinds on the wire. Clients branch on these:
// re-sign, re-check the whitelist, retry later, or give up.
const (
	errKindBadRequest          = "bad_request"
	errKindAlreadyClaimed      = "already_claimed"
	errKindInvalidSignature    = "invalid_signature"
	errKindInvalidProof        = "invalid_proof"
	errKindInsufficientCustody = "insufficient_custody_balance"
	errKindRateLimited         = "rate_limited"
	errKindInternal            = "internal"
)

// handleClaim handles the /claim endpoint: the full verification and
// payout pipeline for one claim.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.claimLimiter.Allow() {
		s.writeError(w, http.StatusTooManyRequests, errKindRateLimited, "claim rate limit exceeded, retry later")
		return
	}

	requestId := uuid.New().String()

	var req types.ClaimRequestV1
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errKindBadRequest, fmt.Sprintf("failed to parse request: %v", err))
		return
	}

	account, amount, proof, signature, err := decodeClaimRequest(&req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errKindBadRequest, err.Error())
		return
	}

	record, err := s.verifier.Claim(r.Context(), account, amount, proof, signature)
	if err != nil {
		status, kind := classifyClaimError(err)
		s.logger.Sugar().Infow("Claim rejected",
			"request_id", requestId,
			"account", account.Hex(),
			"kind", kind,
			"error", err)
		s.writeError(w, status, kind, err.Error())
		return
	}

	s.logger.Sugar().Infow("Claim served",
		"request_id", requestId,
		"account", record.Account.Hex(),
		"amount", record.Amount.String())

	s.writeJSON(w, http.StatusOK, types.ClaimResponseV1{
		Account:   record.Account.Hex(),
		Amount:    hexutil.EncodeBig(record.Amount),
		ClaimedAt: record.ClaimedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// handleGetRoot handles the /root endpoint
func (s *Server) handleGetRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	root := s.verifier.Root()
	s.writeJSON(w, http.StatusOK, types.RootResponseV1{
		Root:  hexutil.Encode(root[:]),
		Token: s.verifier.Token().Hex(),
	})
}

// handleGetDigest handles the /digest endpoint: it returns the exact
// digest the claiming account must sign for the given amount.
func (s *Server) handleGetDigest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountParam := r.URL.Query().Get("account")
	if !common.IsHexAddress(accountParam) {
		s.writeError(w, http.StatusBadRequest, errKindBadRequest, fmt.Sprintf("invalid account address %q", accountParam))
		return
	}
	account := common.HexToAddress(accountParam)

	amount, err := hexutil.DecodeBig(r.URL.Query().Get("amount"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errKindBadRequest, fmt.Sprintf("invalid amount: %v", err))
		return
	}

	digest, err := s.verifier.ClaimDigest(account, amount)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, errKindInternal, "failed to compute digest")
		return
	}

	s.writeJSON(w, http.StatusOK, types.DigestResponseV1{
		Account: account.Hex(),
		Amount:  hexutil.EncodeBig(amount),
		Digest:  hexutil.Encode(digest[:]),
	})
}

// handleGetClaimed handles the /claimed endpoint
func (s *Server) handleGetClaimed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountParam := r.URL.Query().Get("account")
	if !common.IsHexAddress(accountParam) {
		s.writeError(w, http.StatusBadRequest, errKindBadRequest, fmt.Sprintf("invalid account address %q", accountParam))
		return
	}
	account := common.HexToAddress(accountParam)

	claimed, err := s.verifier.IsClaimed(account)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, errKindInternal, "failed to read claim state")
		return
	}

	s.writeJSON(w, http.StatusOK, types.ClaimedResponseV1{
		Account: account.Hex(),
		Claimed: claimed,
	})
}

// handleHealthz handles the /healthz liveness endpoint
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// decodeClaimRequest validates and decodes the hex wire fields.
func decodeClaimRequest(req *types.ClaimRequestV1) (common.Address, *big.Int, [][32]byte, []byte, error) {
	if !common.IsHexAddress(req.Account) {
		return common.Address{}, nil, nil, nil, fmt.Errorf("invalid account address %q", req.Account)
	}
	account := common.HexToAddress(req.Account)

	amount, err := hexutil.DecodeBig(req.Amount)
	if err != nil {
		return common.Address{}, nil, nil, nil, fmt.Errorf("invalid amount %q: %v", req.Amount, err)
	}

	proof := make([][32]byte, len(req.Proof))
	for i, element := range req.Proof {
		decoded, err := hexutil.Decode(element)
		if err != nil || len(decoded) != 32 {
			return common.Address{}, nil, nil, nil, fmt.Errorf("proof element %d is not a 32-byte hex string", i)
		}
		copy(proof[i][:], decoded)
	}

	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		return common.Address{}, nil, nil, nil, fmt.Errorf("invalid signature encoding: %v", err)
	}

	return account, amount, proof, signature, nil
}

// classifyClaimError maps verifier rejections to HTTP statuses and wire
// error kinds.
func classifyClaimError(err error) (int, string) {
	switch {
	case errors.Is(err, verifier.ErrAlreadyClaimed):
		return http.StatusConflict, errKindAlreadyClaimed
	case errors.Is(err, verifier.ErrInvalidSignature):
		return http.StatusUnauthorized, errKindInvalidSignature
	case errors.Is(err, verifier.ErrInvalidProof):
		return http.StatusForbidden, errKindInvalidProof
	case errors.Is(err, ledger.ErrInsufficientCustodyBalance):
		return http.StatusServiceUnavailable, errKindInsufficientCustody
	default:
		return http.StatusInternalServerError, errKindInternal
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Sugar().Errorw("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, types.ErrorResponseV1{Kind: kind, Message: message})
}
