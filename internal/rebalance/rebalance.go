// Package rebalance swaps the input tokens received from a fill back into the
// output token, so the wallet is funded for the next fill.
package rebalance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultGasLimit is the gas ceiling of a single-pool swap.
	DefaultGasLimit = 300_000

	defaultSlippageBps = 50
	defaultDeadline    = 20 * time.Minute
	maxBps             = 10_000
)

// ErrNothingReceived is returned when the fill receipt carries no input token
// transfer to the filler.
var ErrNothingReceived = errors.New("no input token transfer to filler in fill receipt")

//nolint:gochecknoglobals // event signature
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Sender signs and sends a transaction from the filler account.
// *settlement.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Receipt, error)
	Address() common.Address
}

// Config holds rebalancer configuration.
type Config struct {
	Sender Sender
	// Router overrides the SwapRouter of ChainID.
	Router  common.Address
	ChainID int64

	// Fee is the pool fee tier in hundredths of a bip. Defaults to 3000.
	Fee uint32
	// SlippageBps is the tolerated shortfall against the reference price.
	SlippageBps int64
	GasLimit    uint64
	Deadline    time.Duration

	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// Request describes one completed fill to rebalance.
type Request struct {
	FillReceipt *types.Receipt
	InputToken  types.Token
	OutputToken types.Token
	// ReferencePrice is output token units per input token, as used in evaluation.
	ReferencePrice decimal.Decimal
}

// Swap describes a confirmed rebalance swap.
type Swap struct {
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Receipt      *types.Receipt
}

// Rebalancer swaps fill proceeds back into the output token through a single
// Uniswap V3 pool.
type Rebalancer struct {
	sender      Sender
	router      common.Address
	fee         uint32
	slippageBps int64
	gasLimit    uint64
	deadline    time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

// New creates a new rebalancer.
func New(cfg *Config) (*Rebalancer, error) {
	if cfg.Sender == nil {
		return nil, errors.New("sender cannot be nil")
	}

	router := cfg.Router
	if router == (common.Address{}) {
		var ok bool
		router, ok = uniswapx.SwapRouterAddress(cfg.ChainID)
		if !ok {
			return nil, fmt.Errorf("no swap router known for chain %d", cfg.ChainID)
		}
	}

	r := &Rebalancer{
		sender:      cfg.Sender,
		router:      router,
		fee:         cfg.Fee,
		slippageBps: cfg.SlippageBps,
		gasLimit:    cfg.GasLimit,
		deadline:    cfg.Deadline,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}

	if r.fee == 0 {
		r.fee = uniswapx.FeeMedium
	}
	if r.slippageBps == 0 {
		r.slippageBps = defaultSlippageBps
	}
	if r.slippageBps < 0 || r.slippageBps >= maxBps {
		return nil, fmt.Errorf("slippage %d bps out of range", r.slippageBps)
	}
	if r.gasLimit == 0 {
		r.gasLimit = DefaultGasLimit
	}
	if r.deadline <= 0 {
		r.deadline = defaultDeadline
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	return r, nil
}

// Router returns the swap router the rebalancer sends to. The filler must have
// approved it for every input token.
func (r *Rebalancer) Router() common.Address {
	return r.router
}

// Rebalance swaps the input tokens the fill delivered to the filler back into
// the output token. The minimum output is the reference price less slippage.
func (r *Rebalancer) Rebalance(ctx context.Context, req *Request) (*Swap, error) {
	if req.FillReceipt == nil {
		RebalancesTotal.WithLabelValues("skipped").Inc()
		return nil, errors.New("fill receipt cannot be nil")
	}

	filler := r.sender.Address()
	amountIn := ReceivedAmount(req.FillReceipt.Logs, req.InputToken.Address, filler)
	if amountIn.Sign() == 0 {
		RebalancesTotal.WithLabelValues("skipped").Inc()
		return nil, ErrNothingReceived
	}

	minOut := MinAmountOut(amountIn, req.InputToken, req.OutputToken, req.ReferencePrice, r.slippageBps)

	data, err := uniswapx.ExactInputSingleCalldata(&uniswapx.ExactInputSingleParams{
		TokenIn:          req.InputToken.Address,
		TokenOut:         req.OutputToken.Address,
		Fee:              new(big.Int).SetUint64(uint64(r.fee)),
		Recipient:        filler,
		Deadline:         big.NewInt(r.now().Add(r.deadline).Unix()),
		AmountIn:         amountIn,
		AmountOutMinimum: minOut,
	})
	if err != nil {
		RebalancesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("build swap calldata: %w", err)
	}

	r.logger.Info("rebalance-swap-sending",
		zap.String("fill-tx", req.FillReceipt.TxHash.Hex()),
		zap.String("token-in", req.InputToken.Symbol),
		zap.String("token-out", req.OutputToken.Symbol),
		zap.Stringer("amount-in", req.InputToken.ToDecimal(amountIn)),
		zap.Stringer("min-amount-out", req.OutputToken.ToDecimal(minOut)))

	receipt, err := r.sender.Send(ctx, r.router, data, r.gasLimit)
	if err != nil {
		RebalancesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("send swap: %w", err)
	}

	RebalancesTotal.WithLabelValues("swapped").Inc()

	return &Swap{AmountIn: amountIn, MinAmountOut: minOut, Receipt: receipt}, nil
}

// ReceivedAmount sums the ERC20 transfers of token to recipient in logs.
func ReceivedAmount(logs []*gethtypes.Log, token, recipient common.Address) *big.Int {
	total := new(big.Int)
	to := common.BytesToHash(recipient.Bytes())

	for _, l := range logs {
		if l == nil || l.Address != token || len(l.Topics) != 3 {
			continue
		}
		if l.Topics[0] != transferTopic || l.Topics[2] != to {
			continue
		}
		total.Add(total, new(big.Int).SetBytes(l.Data))
	}

	return total
}

// MinAmountOut converts amountIn at the reference price into output token base
// units and takes off slippageBps, truncating.
func MinAmountOut(amountIn *big.Int, in, out types.Token, ref decimal.Decimal, slippageBps int64) *big.Int {
	value := in.ToDecimal(amountIn).Mul(ref)
	// maxBps is 10^4, so the shift divides exactly.
	value = value.Mul(decimal.NewFromInt(maxBps - slippageBps)).Shift(-4)
	return out.FromDecimal(value)
}
