package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/dropkit/airdrop-go/pkg/artifact"
	"github.com/dropkit/airdrop-go/pkg/logger"
	"github.com/dropkit/airdrop-go/pkg/signer"
	"github.com/dropkit/airdrop-go/pkg/types"
)

func main() {
	app := &cli.App{
		Name:  "airdrop-claim",
		Usage: "Submit an airdrop claim",
		Description: `Claims a whitelisted allocation from an airdrop-server.

Looks up the signer's entry in the distribution artifact, fetches the
claim digest from the server, signs it, and submits the claim. The key
never leaves the client: either a local hex key or an AWS KMS key signs
the EIP-712 digest.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "artifact",
				Aliases:  []string{"a"},
				Usage:    "Path to the distribution artifact JSON",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "Base URL of the airdrop-server",
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "Hex private key of the claiming account",
				EnvVars: []string{"AIRDROP_CLAIM_PRIVATE_KEY"},
			},
			&cli.StringFlag{
				Name:    "kms-key-id",
				Usage:   "AWS KMS key id to sign with instead of a local key",
				EnvVars: []string{"AIRDROP_CLAIM_KMS_KEY_ID"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose logging",
			},
		},
		Action: runClaim,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runClaim(c *cli.Context) error {
	ctx := c.Context

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	claimSigner, err := buildSigner(ctx, c)
	if err != nil {
		return err
	}
	account := claimSigner.Address()

	a, err := artifact.ReadFile(c.String("artifact"))
	if err != nil {
		return fmt.Errorf("failed to load artifact: %w", err)
	}
	entry, ok := a.EntryFor(account)
	if !ok {
		return fmt.Errorf("account %s is not in the distribution whitelist", account.Hex())
	}
	l.Sugar().Infow("Found allocation",
		"account", account.Hex(),
		"amount", entry.Amount.String(),
		"campaign_id", a.CampaignID)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	serverURL := c.String("server")

	// Fetch the canonical digest from the server rather than rebuilding
	// the domain locally; a mismatch would surface here, before signing
	digest, err := fetchDigest(ctx, httpClient, serverURL, account.Hex(), entry.Amount.String())
	if err != nil {
		return err
	}

	signature, err := claimSigner.SignDigest(ctx, digest)
	if err != nil {
		return fmt.Errorf("failed to sign claim digest: %w", err)
	}

	proof := make([]string, len(entry.Proof))
	for i, sibling := range entry.Proof {
		proof[i] = sibling.Hex()
	}

	response, err := postClaim(ctx, httpClient, serverURL, &types.ClaimRequestV1{
		Account:   account.Hex(),
		Amount:    entry.Amount.String(),
		Proof:     proof,
		Signature: hexutil.Encode(signature),
	})
	if err != nil {
		return err
	}

	l.Sugar().Infow("Claim succeeded",
		"account", response.Account,
		"amount", response.Amount,
		"claimed_at", response.ClaimedAt)
	return nil
}

func buildSigner(ctx context.Context, c *cli.Context) (signer.IClaimSigner, error) {
	privateKey := c.String("private-key")
	kmsKeyId := c.String("kms-key-id")

	switch {
	case privateKey != "" && kmsKeyId != "":
		return nil, fmt.Errorf("specify either --private-key or --kms-key-id, not both")
	case privateKey != "":
		return signer.NewLocalSigner(privateKey)
	case kmsKeyId != "":
		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
		if err != nil {
			return nil, err
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		return signer.NewKMSSigner(ctx, awsCfg, kmsKeyId, l)
	default:
		return nil, fmt.Errorf("one of --private-key or --kms-key-id is required")
	}
}

func fetchDigest(ctx context.Context, client *http.Client, serverURL, account, amount string) ([32]byte, error) {
	var digest [32]byte

	url := fmt.Sprintf("%s/digest?account=%s&amount=%s", serverURL, account, amount)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return digest, fmt.Errorf("failed to build digest request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return digest, fmt.Errorf("failed to fetch claim digest: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return digest, serverError(resp)
	}

	var body types.DigestResponseV1
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return digest, fmt.Errorf("failed to decode digest response: %w", err)
	}

	decoded, err := hexutil.Decode(body.Digest)
	if err != nil || len(decoded) != 32 {
		return digest, fmt.Errorf("server returned malformed digest %q", body.Digest)
	}
	copy(digest[:], decoded)
	return digest, nil
}

func postClaim(ctx context.Context, client *http.Client, serverURL string, claim *types.ClaimRequestV1) (*types.ClaimResponseV1, error) {
	payload, err := json.Marshal(claim)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claim request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/claim", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build claim request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit claim: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}

	var body types.ClaimResponseV1
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode claim response: %w", err)
	}
	return &body, nil
}

// serverError turns a non-200 response into an error carrying the wire
// error kind when the body parses as one.
func serverError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var wire types.ErrorResponseV1
	if err := json.Unmarshal(data, &wire); err == nil && wire.Kind != "" {
		return fmt.Errorf("server rejected request (%s): %s", wire.Kind, wire.Message)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(data))
}
