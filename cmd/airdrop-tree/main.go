package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/dropkit/airdrop-go/pkg/artifact"
	"github.com/dropkit/airdrop-go/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "airdrop-tree",
		Usage: "Airdrop distribution tree builder",
		Description: `Builds the merkle commitment for a token distribution campaign.

Reads a whitelist JSON file ([{account, amount}, ...]), hashes each
allocation into a leaf, builds the tree, and writes the distribution
artifact: the root plus a membership proof per recipient. The artifact
is the input to airdrop-server and to claimant tooling; the allocation
order in the input file is final.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "allocations",
				Aliases:  []string{"i"},
				Usage:    "Path to the whitelist JSON file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "token",
				Aliases:  []string{"t"},
				Usage:    "Address of the distributed ERC-20 token",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Value:   "artifact.json",
				Usage:   "Output path for the distribution artifact",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose logging",
			},
		},
		Action: runTreeBuilder,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runTreeBuilder(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	tokenParam := c.String("token")
	if !common.IsHexAddress(tokenParam) {
		return fmt.Errorf("invalid token address %q", tokenParam)
	}
	token := common.HexToAddress(tokenParam)

	records, err := artifact.ReadAllocationsFile(c.String("allocations"))
	if err != nil {
		return fmt.Errorf("failed to read allocations: %w", err)
	}
	l.Sugar().Infow("Loaded allocations", "records", len(records))

	a, err := artifact.Generate(records, token)
	if err != nil {
		return fmt.Errorf("failed to build distribution artifact: %w", err)
	}

	// Re-verify before publishing so a builder bug can never ship an
	// artifact whose proofs don't reach the root
	if err := a.Verify(); err != nil {
		return fmt.Errorf("generated artifact failed self-verification: %w", err)
	}

	outPath := c.String("out")
	if err := a.WriteFile(outPath); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	l.Sugar().Infow("Distribution artifact written",
		"path", outPath,
		"campaign_id", a.CampaignID,
		"token", a.Token.Hex(),
		"root", a.Root.Hex(),
		"entries", len(a.Entries))

	return nil
}
