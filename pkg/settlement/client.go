// Package settlement signs and submits transactions to the settlement contract.
package settlement

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
	"go.uber.org/zap"
)

const (
	// DefaultGasLimit is the fixed gas ceiling of a fill.
	DefaultGasLimit = 600_000

	// ApproveGasLimit is the gas ceiling of an ERC20 approve.
	ApproveGasLimit = 100_000

	defaultReceiptPollInterval = 2 * time.Second
)

// Backend is the subset of an Ethereum RPC client used for writes.
// *ethclient.Client satisfies it.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// TxError reports a failure after a transaction was broadcast.
type TxError struct {
	TxHash common.Hash
	Err    error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("tx %s: %v", e.TxHash.Hex(), e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// Config holds settlement client configuration.
type Config struct {
	Backend    Backend
	PrivateKey *ecdsa.PrivateKey
	ChainID    int64
	// Reactor overrides the settlement contract of ChainID.
	Reactor             common.Address
	GasLimit            uint64
	ReceiptPollInterval time.Duration
	Logger              *zap.Logger
}

// Client submits fills and approvals from a single account.
type Client struct {
	backend      Backend
	key          *ecdsa.PrivateKey
	address      common.Address
	signer       gethtypes.Signer
	reactor      common.Address
	gasLimit     uint64
	pollInterval time.Duration
	logger       *zap.Logger
}

// New creates a new settlement client.
func New(cfg *Config) (*Client, error) {
	if cfg.Backend == nil {
		return nil, errors.New("backend cannot be nil")
	}

	if cfg.PrivateKey == nil {
		return nil, errors.New("private key cannot be nil")
	}

	reactor := cfg.Reactor
	if reactor == (common.Address{}) {
		var ok bool
		reactor, ok = uniswapx.ReactorAddress(cfg.ChainID)
		if !ok {
			return nil, fmt.Errorf("no reactor known for chain %d", cfg.ChainID)
		}
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}

	pollInterval := cfg.ReceiptPollInterval
	if pollInterval <= 0 {
		pollInterval = defaultReceiptPollInterval
	}

	return &Client{
		backend:      cfg.Backend,
		key:          cfg.PrivateKey,
		address:      crypto.PubkeyToAddress(cfg.PrivateKey.PublicKey),
		signer:       gethtypes.NewEIP155Signer(big.NewInt(cfg.ChainID)),
		reactor:      reactor,
		gasLimit:     gasLimit,
		pollInterval: pollInterval,
		logger:       cfg.Logger,
	}, nil
}

// Address returns the filler account.
func (c *Client) Address() common.Address {
	return c.address
}

// Reactor returns the settlement contract fills are sent to.
func (c *Client) Reactor() common.Address {
	return c.reactor
}

// Submit executes a signed order against the reactor with the fixed gas limit
// and waits for confirmation. A failure after broadcast is a *TxError.
func (c *Client) Submit(ctx context.Context, encodedOrder []byte, sig []byte) (*types.Receipt, error) {
	data, err := uniswapx.ExecuteCalldata(encodedOrder, sig)
	if err != nil {
		return nil, fmt.Errorf("build execute calldata: %w", err)
	}

	return c.Send(ctx, c.reactor, data, c.gasLimit)
}

// Approve grants spender an allowance of amount on token using approveData
// built by the caller.
func (c *Client) Approve(ctx context.Context, token common.Address, approveData []byte) (*types.Receipt, error) {
	return c.Send(ctx, token, approveData, ApproveGasLimit)
}

// Send signs a transaction calling to with data, broadcasts it and waits for its receipt.
func (c *Client) Send(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Receipt, error) {
	start := time.Now()

	nonce, err := c.backend.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := gethtypes.SignTx(tx, c.signer, c.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	err = c.backend.SendTransaction(ctx, signedTx)
	if err != nil {
		TransactionsTotal.WithLabelValues("send-failed").Inc()
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	c.logger.Info("transaction-sent",
		zap.String("tx-hash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas-limit", gasLimit),
		zap.String("gas-price", gasPrice.String()))

	receipt, err := c.waitForReceipt(ctx, signedTx.Hash())
	if err != nil {
		TransactionsTotal.WithLabelValues("unconfirmed").Inc()
		return nil, &TxError{TxHash: signedTx.Hash(), Err: err}
	}

	ConfirmationDurationSeconds.Observe(time.Since(start).Seconds())

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		TransactionsTotal.WithLabelValues("reverted").Inc()
		return nil, &TxError{TxHash: signedTx.Hash(), Err: types.ErrTxReverted}
	}

	TransactionsTotal.WithLabelValues("confirmed").Inc()

	c.logger.Info("transaction-confirmed",
		zap.String("tx-hash", signedTx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas-used", receipt.GasUsed))

	return &types.Receipt{
		TxHash:      signedTx.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Logs:        receipt.Logs,
	}, nil
}

// waitForReceipt polls for the receipt until it is mined or ctx is done.
func (c *Client) waitForReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		if !errors.Is(err, ethereum.NotFound) {
			c.logger.Warn("receipt-lookup-failed",
				zap.String("tx-hash", txHash.Hex()),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for receipt: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
