package server

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dropkit/airdrop-go/pkg/verifier"
)

// Server exposes the claim verifier over HTTP.
//
// Claim Flow:
//
//	GET /root:
//	  - Returns the committed merkle root and token address
//	  - Lets clients confirm they hold the matching distribution artifact
//
//	GET /digest?account=0x..&amount=..:
//	  - Returns the exact EIP-712 digest the account must sign
//	  - The wallet signs this digest; no server-side key material involved
//
//	GET /claimed?account=0x..:
//	  - Returns whether the account's claim flag is set
//
//	POST /claim:
//	  - Request: { account, amount, proof, signature }
//	  - Runs the full verification pipeline: claim guard, signature
//	    recovery, leaf recomputation, proof check, commit, transfer
//	  - Response: { account, amount, claimed_at } on success, or
//	    { kind, message } naming the rejection category
//
// Submission is permissionless: anyone may POST a claim, but the payout
// always goes to the whitelisted account, so relaying is harmless.
type Server struct {
	verifier     *verifier.Verifier
	logger       *zap.Logger
	httpServer   *http.Server
	claimLimiter *rate.Limiter
}

// claimRatePerSecond bounds how fast /claim requests reach the
// signature and proof checks. Reads are not limited.
const claimRatePerSecond = 50

// NewServer creates a new claim server instance
func NewServer(v *verifier.Verifier, port int, logger *zap.Logger) *Server {
	s := &Server{
		verifier:     v,
		logger:       logger,
		claimLimiter: rate.NewLimiter(rate.Limit(claimRatePerSecond), 2*claimRatePerSecond),
	}

	mux := http.NewServeMux()

	// Claim endpoint
	mux.HandleFunc("/claim", s.handleClaim)

	// Campaign metadata endpoints
	mux.HandleFunc("/root", s.handleGetRoot)
	mux.HandleFunc("/digest", s.handleGetDigest)
	mux.HandleFunc("/claimed", s.handleGetClaimed)

	// Liveness endpoint
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	return s.httpServer.Close()
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
