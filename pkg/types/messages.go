package types

// Wire types for the claim server HTTP surface. Amounts and digests travel
// as 0x-prefixed hex strings so callers don't need JSON big-number support.

// ClaimRequestV1 is the body of POST /claim.
type ClaimRequestV1 struct {
	Account   string   `json:"account"`
	Amount    string   `json:"amount"`
	Proof     []string `json:"proof"`
	Signature string   `json:"signature"`
}

// ClaimResponseV1 is returned on a successful claim.
type ClaimResponseV1 struct {
	Account   string `json:"account"`
	Amount    string `json:"amount"`
	ClaimedAt string `json:"claimed_at"`
}

// DigestResponseV1 is returned by GET /digest and carries the exact
// EIP-712 digest the claimant must sign.
type DigestResponseV1 struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Digest  string `json:"digest"`
}

// RootResponseV1 is returned by GET /root.
type RootResponseV1 struct {
	Root  string `json:"root"`
	Token string `json:"token"`
}

// ClaimedResponseV1 is returned by GET /claimed.
type ClaimedResponseV1 struct {
	Account string `json:"account"`
	Claimed bool   `json:"claimed"`
}

// ErrorResponseV1 carries a machine-readable error kind so client tooling
// can tell re-sign from re-check-whitelist from contact-operator.
type ErrorResponseV1 struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
