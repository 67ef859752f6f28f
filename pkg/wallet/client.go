package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/pkg/types"
	"go.uber.org/zap"
)

const erc20ABI = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

const balanceSource = "balance"

// ErrEmptyResult is returned when a call returns no data, usually because the
// address has no contract code.
var ErrEmptyResult = errors.New("empty call result")

// Backend is the subset of an Ethereum RPC client used for reads.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Client reads ERC20 and native balances from the chain.
type Client struct {
	backend Backend
	erc20   abi.ABI
	logger  *zap.Logger
}

// NewClient creates a new wallet client.
func NewClient(backend Backend, logger *zap.Logger) (c *Client, err error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	client := &Client{
		backend: backend,
		erc20:   parsed,
		logger:  logger,
	}

	return client, nil
}

// BalanceOf returns the ERC20 balance of owner in base units.
// Failures are returned as *types.FetchError.
func (c *Client) BalanceOf(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	balance, err := c.callUint256(ctx, token, "balanceOf", owner)
	if err != nil {
		return nil, &types.FetchError{Source: balanceSource, Err: fmt.Errorf("balanceOf %s: %w", token.Hex(), err)}
	}

	c.logger.Debug("token-balance",
		zap.String("token", token.Hex()),
		zap.String("owner", owner.Hex()),
		zap.String("balance", balance.String()))

	return balance, nil
}

// Allowance returns how much spender may transfer from owner.
func (c *Client) Allowance(
	ctx context.Context,
	token common.Address,
	owner common.Address,
	spender common.Address,
) (allowance *big.Int, err error) {
	allowance, err = c.callUint256(ctx, token, "allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("allowance %s: %w", token.Hex(), err)
	}

	return allowance, nil
}

// Decimals returns the token's decimals.
func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	result, err := c.call(ctx, token, "decimals")
	if err != nil {
		return 0, fmt.Errorf("decimals %s: %w", token.Hex(), err)
	}

	values, err := c.erc20.Unpack("decimals", result)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}

	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", values[0])
	}

	return decimals, nil
}

// NativeBalance returns the native gas token balance of account in wei.
func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("get native balance: %w", err)
	}

	return balance, nil
}

// PackApprove builds the calldata of approve(spender, amount).
func (c *Client) PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := c.erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	return data, nil
}

func (c *Client) callUint256(ctx context.Context, token common.Address, method string, args ...any) (*big.Int, error) {
	result, err := c.call(ctx, token, method, args...)
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(result), nil
}

func (c *Client) call(ctx context.Context, token common.Address, method string, args ...any) ([]byte, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &token,
		Data: data,
	}

	result, err := c.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrEmptyResult
	}

	return result, nil
}
