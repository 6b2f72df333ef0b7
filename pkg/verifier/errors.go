package verifier

import "errors"

// Claim error taxonomy. All are caller-facing and non-retryable without
// corrected input; the claim server maps each to a distinct wire kind so
// client tooling can tell re-sign from re-check-whitelist.
var (
	// ErrAlreadyClaimed means the account's flag is already set;
	// resubmission with any proof/signature cannot succeed.
	ErrAlreadyClaimed = errors.New("account has already claimed")

	// ErrInvalidSignature means the recovered signer does not match the
	// claiming account, or the signature is malformed.
	ErrInvalidSignature = errors.New("invalid claim signature")

	// ErrInvalidProof means the recomputed root from leaf+proof does not
	// match the committed root: wrong proof, wrong (account, amount), or
	// the pair is not in the whitelist.
	ErrInvalidProof = errors.New("invalid merkle proof")
)
