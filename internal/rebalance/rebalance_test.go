package rebalance

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/mselser95/dutch-filler/internal/testutil"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var filler = common.HexToAddress("0x000000000000000000000000000000000000f111")

type sentTx struct {
	to       common.Address
	data     []byte
	gasLimit uint64
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentTx
	err  error
}

func (f *fakeSender) Send(_ context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentTx{to: to, data: data, gasLimit: gasLimit})
	if f.err != nil {
		return nil, f.err
	}
	return &types.Receipt{TxHash: common.HexToHash("0xabc"), BlockNumber: 10}, nil
}

func (f *fakeSender) Address() common.Address { return filler }

func transferLog(token, from, to common.Address, amount *big.Int) *gethtypes.Log {
	return &gethtypes.Log{
		Address: token,
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func fillReceipt() *types.Receipt {
	return &types.Receipt{
		TxHash: common.HexToHash("0xf111"),
		Logs: []*gethtypes.Log{
			// output leg paid by the filler to the swapper
			transferLog(testutil.USDC.Address, filler, testutil.Swapper, testutil.Units(2950, 6)),
			// input leg delivered to the filler
			transferLog(testutil.WETH.Address, testutil.Swapper, filler, testutil.Units(1, 18)),
		},
	}
}

func newTestRebalancer(t *testing.T, sender Sender) *Rebalancer {
	t.Helper()
	r, err := New(&Config{
		Sender:  sender,
		ChainID: uniswapx.ChainIDArbitrum,
		Now:     func() time.Time { return time.Unix(1_700_000_000, 0) },
		Logger:  zap.NewNop(),
	})
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	_, err := New(&Config{ChainID: uniswapx.ChainIDArbitrum})
	assert.Error(t, err, "sender is required")

	_, err = New(&Config{Sender: &fakeSender{}, ChainID: 137})
	assert.Error(t, err, "unknown chain has no router")

	_, err = New(&Config{Sender: &fakeSender{}, ChainID: uniswapx.ChainIDArbitrum, SlippageBps: 10_000})
	assert.Error(t, err)

	r := newTestRebalancer(t, &fakeSender{})
	router, _ := uniswapx.SwapRouterAddress(uniswapx.ChainIDArbitrum)
	assert.Equal(t, router, r.Router())
	assert.Equal(t, uniswapx.FeeMedium, r.fee)
	assert.Equal(t, int64(defaultSlippageBps), r.slippageBps)
}

func TestReceivedAmount(t *testing.T) {
	logs := fillReceipt().Logs
	logs = append(logs,
		transferLog(testutil.WETH.Address, testutil.Swapper, filler, big.NewInt(5)),
		transferLog(testutil.WETH.Address, filler, testutil.Swapper, big.NewInt(7)),
		&gethtypes.Log{Address: testutil.WETH.Address, Topics: []common.Hash{transferTopic}},
		nil,
	)

	got := ReceivedAmount(logs, testutil.WETH.Address, filler)
	want := new(big.Int).Add(testutil.Units(1, 18), big.NewInt(5))
	assert.Equal(t, 0, want.Cmp(got), "got %s", got)

	assert.Equal(t, 0, ReceivedAmount(logs, testutil.WBTC.Address, filler).Sign())
}

func TestMinAmountOut(t *testing.T) {
	got := MinAmountOut(testutil.Units(1, 18), testutil.WETH, testutil.USDC, decimal.NewFromInt(3000), 50)
	assert.Equal(t, "2985000000", got.String())

	// truncates below output precision
	got = MinAmountOut(big.NewInt(1), testutil.WETH, testutil.USDC, decimal.NewFromInt(3000), 50)
	assert.Equal(t, 0, got.Sign())
}

func TestRebalance(t *testing.T) {
	sender := &fakeSender{}
	r := newTestRebalancer(t, sender)

	swap, err := r.Rebalance(context.Background(), &Request{
		FillReceipt:    fillReceipt(),
		InputToken:     testutil.WETH,
		OutputToken:    testutil.USDC,
		ReferencePrice: decimal.NewFromInt(3000),
	})
	require.NoError(t, err)
	assert.Equal(t, "2985000000", swap.MinAmountOut.String())

	require.Len(t, sender.sent, 1)
	tx := sender.sent[0]
	assert.Equal(t, r.Router(), tx.to)
	assert.Equal(t, uint64(DefaultGasLimit), tx.gasLimit)

	params, err := uniswapx.DecodeExactInputSingle(tx.data)
	require.NoError(t, err)
	assert.Equal(t, testutil.WETH.Address, params.TokenIn)
	assert.Equal(t, testutil.USDC.Address, params.TokenOut)
	assert.Equal(t, filler, params.Recipient)
	assert.Equal(t, int64(3000), params.Fee.Int64())
	assert.Equal(t, 0, testutil.Units(1, 18).Cmp(params.AmountIn))
	assert.Equal(t, int64(1_700_000_000+20*60), params.Deadline.Int64())
}

func TestRebalance_NothingReceived(t *testing.T) {
	sender := &fakeSender{}
	r := newTestRebalancer(t, sender)

	_, err := r.Rebalance(context.Background(), &Request{
		FillReceipt:    &types.Receipt{},
		InputToken:     testutil.WETH,
		OutputToken:    testutil.USDC,
		ReferencePrice: decimal.NewFromInt(3000),
	})
	assert.ErrorIs(t, err, ErrNothingReceived)
	assert.Empty(t, sender.sent)
}

func TestRebalance_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("nonce too low")}
	r := newTestRebalancer(t, sender)

	_, err := r.Rebalance(context.Background(), &Request{
		FillReceipt:    fillReceipt(),
		InputToken:     testutil.WETH,
		OutputToken:    testutil.USDC,
		ReferencePrice: decimal.NewFromInt(3000),
	})
	assert.ErrorContains(t, err, "nonce too low")
}
