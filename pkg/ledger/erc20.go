package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dropkit/airdrop-go/pkg/config"
)

// erc20ABI is the minimal ABI surface the ledger needs: transfers out of
// custody and balance queries. No mint/burn.
const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// ERC20Ledger is an ILedger backed by an ERC-20 token contract. The
// custody account is the transaction signer's address; every Transfer is
// an on-chain token transfer from custody to the recipient, mined before
// the call returns.
type ERC20Ledger struct {
	client     *ethclient.Client
	contract   *bind.BoundContract
	token      common.Address
	custodyKey *ecdsa.PrivateKey
	custody    common.Address
	chainID    *big.Int

	// receiptTimeout bounds how long Transfer waits for the transaction
	// to be mined. A stuck transaction holds the account's claim flag set
	// until rollback, so the wait cannot be open-ended.
	receiptTimeout time.Duration

	logger *zap.Logger
}

var _ ILedger = (*ERC20Ledger)(nil)

// NewERC20Ledger creates a ledger bound to the token contract at
// tokenAddress. custodyPrivateKey is the hex-encoded key of the pre-funded
// custody account.
func NewERC20Ledger(client *ethclient.Client, tokenAddress common.Address, custodyPrivateKey string, chainID uint64, logger *zap.Logger) (*ERC20Ledger, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ERC-20 ABI")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(custodyPrivateKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse custody private key")
	}

	return &ERC20Ledger{
		client:         client,
		contract:       bind.NewBoundContract(tokenAddress, parsedABI, client, client, client),
		token:          tokenAddress,
		custodyKey:     key,
		custody:        crypto.PubkeyToAddress(key.PublicKey),
		chainID:        new(big.Int).SetUint64(chainID),
		receiptTimeout: config.GetReceiptTimeoutForChain(config.ChainId(chainID)),
		logger:         logger,
	}, nil
}

// Transfer sends an ERC-20 transfer from custody to the recipient and
// waits for it to be mined, bounded by the chain's receipt timeout.
// Custody balance is checked first so an underfunded campaign surfaces
// as ErrInsufficientCustodyBalance rather than a reverted transaction.
func (l *ERC20Ledger) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	custodyBalance, err := l.BalanceOf(ctx, l.custody)
	if err != nil {
		return errors.Wrapf(err, "failed to check custody balance for %s", l.custody.Hex())
	}
	if custodyBalance.Cmp(amount) < 0 {
		return fmt.Errorf("custody %s holds %s, needs %s: %w",
			l.custody.Hex(), custodyBalance.String(), amount.String(), ErrInsufficientCustodyBalance)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(l.custodyKey, l.chainID)
	if err != nil {
		return errors.Wrap(err, "failed to create transactor")
	}
	opts.Context = ctx

	tx, err := l.contract.Transact(opts, "transfer", to, amount)
	if err != nil {
		return errors.Wrapf(err, "failed to submit transfer of %s to %s", amount.String(), to.Hex())
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.receiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, l.client, tx)
	if err != nil {
		return errors.Wrapf(err, "failed waiting for transfer tx %s (timeout %s)", tx.Hash().Hex(), l.receiptTimeout)
	}
	if receipt.Status != 1 {
		return fmt.Errorf("transfer tx %s reverted", tx.Hash().Hex())
	}

	l.logger.Sugar().Infow("Token transfer mined",
		"token", l.token.Hex(),
		"to", to.Hex(),
		"amount", amount.String(),
		"tx", tx.Hash().Hex(),
	)

	return nil
}

// BalanceOf queries the token balance of an account.
func (l *ERC20Ledger) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}
	err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query balance of %s", account.Hex())
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf return type %T", out[0])
	}
	return balance, nil
}

// Token returns the token contract address.
func (l *ERC20Ledger) Token() common.Address {
	return l.token
}

// Custody returns the custody account.
func (l *ERC20Ledger) Custody() common.Address {
	return l.custody
}
