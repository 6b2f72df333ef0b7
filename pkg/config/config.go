package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for airdrop server configuration
const (
	EnvAirdropPort            = "AIRDROP_PORT"
	EnvAirdropChainID         = "AIRDROP_CHAIN_ID"
	EnvAirdropArtifactPath    = "AIRDROP_ARTIFACT_PATH"
	EnvAirdropCampaignName    = "AIRDROP_CAMPAIGN_NAME"
	EnvAirdropCampaignVersion = "AIRDROP_CAMPAIGN_VERSION"
	EnvAirdropContract        = "AIRDROP_CONTRACT_ADDRESS"
	EnvAirdropStoreType       = "AIRDROP_STORE_TYPE"
	EnvAirdropBadgerDir       = "AIRDROP_BADGER_DIR"
	EnvAirdropRedisAddr       = "AIRDROP_REDIS_ADDR"
	EnvAirdropLedgerType      = "AIRDROP_LEDGER_TYPE"
	EnvAirdropRPCURL          = "AIRDROP_RPC_URL"
	EnvAirdropCustodyKey      = "AIRDROP_CUSTODY_PRIVATE_KEY"
	EnvAirdropVerbose         = "AIRDROP_VERBOSE"
)

type ChainId uint64

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}
var ChainNameToId = map[ChainName]ChainId{
	ChainName_EthereumMainnet: ChainId_EthereumMainnet,
	ChainName_EthereumSepolia: ChainId_EthereumSepolia,
	ChainName_EthereumAnvil:   ChainId_EthereumAnvil,
}

// GetSupportedChainIDs returns all supported chain IDs
func GetSupportedChainIDs() []ChainId {
	return []ChainId{
		ChainId_EthereumMainnet,
		ChainId_EthereumSepolia,
		ChainId_EthereumAnvil,
	}
}

// GetSupportedChainIDsString returns supported chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (sepolia), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}

// GetReceiptTimeoutForChain returns how long the ledger waits for a
// transfer transaction to be mined before giving up.
func GetReceiptTimeoutForChain(chainId ChainId) time.Duration {
	switch chainId {
	case ChainId_EthereumMainnet:
		// ~12s blocks, allow a few blocks of inclusion delay
		return 3 * time.Minute
	case ChainId_EthereumSepolia:
		return 2 * time.Minute
	case ChainId_EthereumAnvil:
		// 2s blocks on the local devnet
		return 15 * time.Second
	default:
		return 3 * time.Minute
	}
}

// StoreType selects the claim-state backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeBadger StoreType = "badger"
	StoreTypeRedis  StoreType = "redis"
)

// LedgerType selects the token-transfer backend.
type LedgerType string

const (
	LedgerTypeMemory LedgerType = "memory"
	LedgerTypeERC20  LedgerType = "erc20"
)

// ServerConfig represents the complete configuration for an airdrop
// claim server.
type ServerConfig struct {
	Port int `json:"port"`

	// Chain configuration
	ChainID   ChainId   `json:"chain_id"`
	ChainName ChainName `json:"chain_name"`

	// Campaign identity: the signing domain under which claim digests
	// are computed. Contract is the verifying contract address.
	CampaignName    string `json:"campaign_name"`
	CampaignVersion string `json:"campaign_version"`
	ContractAddress string `json:"contract_address"`

	// Distribution artifact produced by the tree builder
	ArtifactPath string `json:"artifact_path"`

	// Claim-state backend
	StoreType StoreType `json:"store_type"`
	BadgerDir string    `json:"badger_dir,omitempty"`
	RedisAddr string    `json:"redis_addr,omitempty"`

	// Ledger backend
	LedgerType        LedgerType `json:"ledger_type"`
	RpcUrl            string     `json:"rpc_url,omitempty"`
	CustodyPrivateKey string     `json:"custody_private_key,omitempty"`

	// Operational settings
	Debug   bool `json:"debug"`
	Verbose bool `json:"verbose"`
}

// Validate validates the server configuration and fills in the derived
// chain name.
func (c *ServerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "port must be between 1-65535"))
	}

	chainName, exists := ChainIdToName[c.ChainID]
	if !exists {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("chainId"), c.ChainID, []string{
			GetSupportedChainIDsString(),
		}))
	} else {
		c.ChainName = chainName
	}

	if c.CampaignName == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("campaignName"), "campaign name is required"))
	}
	if c.CampaignVersion == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("campaignVersion"), "campaign version is required"))
	}
	if c.ContractAddress == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("contractAddress"), "verifying contract address is required"))
	} else if !common.IsHexAddress(c.ContractAddress) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("contractAddress"), c.ContractAddress, "not a valid Ethereum address"))
	}

	if c.ArtifactPath == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("artifactPath"), "distribution artifact path is required"))
	}

	switch c.StoreType {
	case StoreTypeMemory:
	case StoreTypeBadger:
		if c.BadgerDir == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("badgerDir"), "badger directory is required for the badger store"))
		}
	case StoreTypeRedis:
		if c.RedisAddr == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddr"), "redis address is required for the redis store"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("storeType"), c.StoreType, []string{
			string(StoreTypeMemory), string(StoreTypeBadger), string(StoreTypeRedis),
		}))
	}

	switch c.LedgerType {
	case LedgerTypeMemory:
	case LedgerTypeERC20:
		if c.RpcUrl == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("rpcUrl"), "rpc url is required for the erc20 ledger"))
		}
		if c.CustodyPrivateKey == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("custodyPrivateKey"), "custody private key is required for the erc20 ledger"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("ledgerType"), c.LedgerType, []string{
			string(LedgerTypeMemory), string(LedgerTypeERC20),
		}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
