package main

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dropkit/airdrop-go/pkg/artifact"
	"github.com/dropkit/airdrop-go/pkg/claims"
	badgerstore "github.com/dropkit/airdrop-go/pkg/claims/badger"
	memorystore "github.com/dropkit/airdrop-go/pkg/claims/memory"
	redisstore "github.com/dropkit/airdrop-go/pkg/claims/redis"
	"github.com/dropkit/airdrop-go/pkg/config"
	"github.com/dropkit/airdrop-go/pkg/ledger"
	"github.com/dropkit/airdrop-go/pkg/logger"
	"github.com/dropkit/airdrop-go/pkg/server"
	"github.com/dropkit/airdrop-go/pkg/signing"
	"github.com/dropkit/airdrop-go/pkg/verifier"
)

func main() {
	app := &cli.App{
		Name:  "airdrop-server",
		Usage: "Airdrop claim verification server",
		Description: `Serves claim requests for a merkle-whitelisted token distribution.

The server loads a distribution artifact produced by airdrop-tree,
verifies each claim's EIP-712 signature and merkle proof against the
committed root, marks the account claimed exactly once, and pays out
from the custody balance.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   8080,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvAirdropPort},
			},
			&cli.Uint64Flag{
				Name:     "chain-id",
				Aliases:  []string{"chain"},
				Usage:    fmt.Sprintf("Ethereum chain ID: %s", config.GetSupportedChainIDsString()),
				EnvVars:  []string{config.EnvAirdropChainID},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "artifact",
				Aliases:  []string{"a"},
				Usage:    "Path to the distribution artifact JSON",
				EnvVars:  []string{config.EnvAirdropArtifactPath},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "campaign-name",
				Usage:    "EIP-712 domain name for this campaign",
				EnvVars:  []string{config.EnvAirdropCampaignName},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "campaign-version",
				Usage:   "EIP-712 domain version",
				Value:   "1",
				EnvVars: []string{config.EnvAirdropCampaignVersion},
			},
			&cli.StringFlag{
				Name:     "contract-address",
				Usage:    "Verifying contract address for the EIP-712 domain",
				EnvVars:  []string{config.EnvAirdropContract},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Claim store backend: memory, badger, redis",
				Value:   string(config.StoreTypeMemory),
				EnvVars: []string{config.EnvAirdropStoreType},
			},
			&cli.StringFlag{
				Name:    "badger-dir",
				Usage:   "Data directory for the badger store",
				EnvVars: []string{config.EnvAirdropBadgerDir},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address (host:port) for the redis store",
				EnvVars: []string{config.EnvAirdropRedisAddr},
			},
			&cli.StringFlag{
				Name:    "ledger",
				Usage:   "Ledger backend: memory, erc20",
				Value:   string(config.LedgerTypeMemory),
				EnvVars: []string{config.EnvAirdropLedgerType},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Aliases: []string{"rpc"},
				Usage:   "Ethereum RPC endpoint URL (erc20 ledger)",
				Value:   "http://localhost:8545",
				EnvVars: []string{config.EnvAirdropRPCURL},
			},
			&cli.StringFlag{
				Name:    "custody-private-key",
				Usage:   "Hex private key of the pre-funded custody account (erc20 ledger)",
				EnvVars: []string{config.EnvAirdropCustodyKey},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvAirdropVerbose},
			},
		},
		Action: runAirdropServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runAirdropServer(c *cli.Context) error {
	serverConfig := parseServerConfig(c)
	if err := serverConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: serverConfig.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	l.Sugar().Infow("Using chain", "name", serverConfig.ChainName, "chain_id", serverConfig.ChainID)
	if serverConfig.Verbose {
		l.Sugar().Infow("Airdrop server configuration",
			"port", serverConfig.Port,
			"campaign_name", serverConfig.CampaignName,
			"campaign_version", serverConfig.CampaignVersion,
			"contract", serverConfig.ContractAddress,
			"store", serverConfig.StoreType,
			"ledger", serverConfig.LedgerType,
			"receipt_timeout", config.GetReceiptTimeoutForChain(serverConfig.ChainID))
	}

	// Load and re-verify the distribution artifact before trusting its root
	a, err := artifact.ReadFile(serverConfig.ArtifactPath)
	if err != nil {
		return fmt.Errorf("failed to load artifact: %w", err)
	}
	if err := a.Verify(); err != nil {
		return fmt.Errorf("artifact failed verification: %w", err)
	}
	l.Sugar().Infow("Loaded distribution artifact",
		"campaign_id", a.CampaignID,
		"token", a.Token.Hex(),
		"root", a.Root.Hex(),
		"entries", len(a.Entries))

	store, err := buildClaimStore(serverConfig, l)
	if err != nil {
		return fmt.Errorf("failed to create claim store: %w", err)
	}
	defer func() { _ = store.Close() }()

	// Fail fast on a broken backend before accepting claims
	if err := store.HealthCheck(); err != nil {
		return fmt.Errorf("claim store failed health check: %w", err)
	}

	led, err := buildLedger(serverConfig, a, l)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}

	v, err := verifier.NewVerifier(verifier.Config{
		Root: [32]byte(a.Root),
		Domain: signing.Domain{
			Name:              serverConfig.CampaignName,
			Version:           serverConfig.CampaignVersion,
			ChainID:           uint64(serverConfig.ChainID),
			VerifyingContract: common.HexToAddress(serverConfig.ContractAddress),
		},
	}, store, led, l)
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	srv := server.NewServer(v, serverConfig.Port, l)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	l.Sugar().Infow("Airdrop server running", "port", serverConfig.Port)
	l.Sugar().Infow("Available endpoints",
		"claim", "POST /claim",
		"root", "GET /root",
		"digest", "GET /digest",
		"claimed", "GET /claimed",
		"healthz", "GET /healthz")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	l.Sugar().Infow("Shutting down", "signal", sig.String())

	return srv.Stop()
}

func parseServerConfig(c *cli.Context) *config.ServerConfig {
	return &config.ServerConfig{
		Port:              c.Int("port"),
		ChainID:           config.ChainId(c.Uint64("chain-id")),
		CampaignName:      c.String("campaign-name"),
		CampaignVersion:   c.String("campaign-version"),
		ContractAddress:   c.String("contract-address"),
		ArtifactPath:      c.String("artifact"),
		StoreType:         config.StoreType(c.String("store")),
		BadgerDir:         c.String("badger-dir"),
		RedisAddr:         c.String("redis-addr"),
		LedgerType:        config.LedgerType(c.String("ledger")),
		RpcUrl:            c.String("rpc-url"),
		CustodyPrivateKey: c.String("custody-private-key"),
		Debug:             c.Bool("verbose"),
		Verbose:           c.Bool("verbose"),
	}
}

func buildClaimStore(cfg *config.ServerConfig, l *zap.Logger) (claims.IClaimStore, error) {
	switch cfg.StoreType {
	case config.StoreTypeMemory:
		return memorystore.NewMemoryClaimStore(), nil
	case config.StoreTypeBadger:
		return badgerstore.NewBadgerClaimStore(cfg.BadgerDir, l)
	case config.StoreTypeRedis:
		return redisstore.NewRedisClaimStore(&redisstore.RedisConfig{Address: cfg.RedisAddr}, l)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.StoreType)
	}
}

func buildLedger(cfg *config.ServerConfig, a *artifact.Artifact, l *zap.Logger) (ledger.ILedger, error) {
	switch cfg.LedgerType {
	case config.LedgerTypeMemory:
		// Dry-run mode: fund a synthetic custody account to cover every
		// entry in the artifact
		total := new(big.Int)
		for _, entry := range a.Entries {
			total.Add(total, (*big.Int)(entry.Amount))
		}
		custody := common.HexToAddress("0x00000000000000000000000000000000c0570d1a")
		l.Sugar().Infow("Using in-memory ledger", "custody", custody.Hex(), "funding", total.String())
		return ledger.NewMemoryLedger(a.Token, custody, total), nil
	case config.LedgerTypeERC20:
		client, err := ethclient.Dial(cfg.RpcUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.RpcUrl, err)
		}
		return ledger.NewERC20Ledger(client, a.Token, cfg.CustodyPrivateKey, uint64(cfg.ChainID), l)
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", cfg.LedgerType)
	}
}
