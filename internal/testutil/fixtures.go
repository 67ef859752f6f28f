package testutil

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
)

// DecayStart is the decay start time of every fixture order.
const DecayStart = uint64(1_700_000_000)

// Arbitrum tokens used across tests.
var (
	WETH = types.Token{Symbol: "WETH", Address: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), Decimals: 18}
	WBTC = types.Token{Symbol: "WBTC", Address: common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"), Decimals: 8}
	USDC = types.Token{Symbol: "USDC", Address: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), Decimals: 6}
	USDT = types.Token{Symbol: "USDT", Address: common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"), Decimals: 6}

	Swapper = common.HexToAddress("0xa7152Fad7467857dC2D4060FEcaAdf9f6B8227d3")
)

// OrderOption customises a fixture order.
type OrderOption func(*uniswapx.CosignedOrder)

// WithInput sets the input leg.
func WithInput(token common.Address, start, end *big.Int) OrderOption {
	return func(o *uniswapx.CosignedOrder) {
		o.BaseInput = uniswapx.DutchInput{Token: token, StartAmount: start, EndAmount: end}
	}
}

// WithOutputs replaces the output legs.
func WithOutputs(outputs ...uniswapx.DutchOutput) OrderOption {
	return func(o *uniswapx.CosignedOrder) {
		o.BaseOutputs = outputs
		o.CosignerData.OutputOverrides = make([]*big.Int, len(outputs))
		for i := range outputs {
			o.CosignerData.OutputOverrides[i] = big.NewInt(0)
		}
	}
}

// WithSchedule sets the decay window and deadline.
func WithSchedule(decayStart, decayEnd, deadline uint64) OrderOption {
	return func(o *uniswapx.CosignedOrder) {
		o.CosignerData.DecayStartTime = new(big.Int).SetUint64(decayStart)
		o.CosignerData.DecayEndTime = new(big.Int).SetUint64(decayEnd)
		o.Info.Deadline = new(big.Int).SetUint64(deadline)
	}
}

// WithReactor sets the settlement contract of the order.
func WithReactor(reactor common.Address) OrderOption {
	return func(o *uniswapx.CosignedOrder) {
		o.Info.Reactor = reactor
	}
}

// Output builds an output leg paid to the fixture swapper.
func Output(token common.Address, start, end int64) uniswapx.DutchOutput {
	return uniswapx.DutchOutput{
		Token:       token,
		StartAmount: big.NewInt(start),
		EndAmount:   big.NewInt(end),
		Recipient:   Swapper,
	}
}

// Units returns amount * 10^decimals.
func Units(amount int64, decimals int32) *big.Int {
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return exp.Mul(exp, big.NewInt(amount))
}

// CreateTestCosignedOrder creates a 1 WETH -> 3000..2900 USDC order on Arbitrum
// decaying over [DecayStart, DecayStart+100] with deadline DecayStart+200.
func CreateTestCosignedOrder(opts ...OrderOption) *uniswapx.CosignedOrder {
	reactor, _ := uniswapx.ReactorAddress(uniswapx.ChainIDArbitrum)

	order := &uniswapx.CosignedOrder{
		Info: uniswapx.OrderInfo{
			Reactor:  reactor,
			Swapper:  Swapper,
			Nonce:    big.NewInt(1),
			Deadline: new(big.Int).SetUint64(DecayStart + 200),
		},
		Cosigner: common.HexToAddress("0x00000000000000000000000000000000000000c0"),
		BaseInput: uniswapx.DutchInput{
			Token:       WETH.Address,
			StartAmount: Units(1, 18),
			EndAmount:   Units(1, 18),
		},
		BaseOutputs: []uniswapx.DutchOutput{
			{
				Token:       USDC.Address,
				StartAmount: Units(3000, 6),
				EndAmount:   Units(2900, 6),
				Recipient:   Swapper,
			},
		},
		CosignerData: uniswapx.CosignerData{
			DecayStartTime:  new(big.Int).SetUint64(DecayStart),
			DecayEndTime:    new(big.Int).SetUint64(DecayStart + 100),
			OutputOverrides: []*big.Int{big.NewInt(0)},
		},
		Cosignature: bytes.Repeat([]byte{0x11}, 65),
	}

	for _, opt := range opts {
		opt(order)
	}

	return order
}

// OrderHash returns a deterministic order hash for n.
func OrderHash(n int64) string {
	return common.BigToHash(big.NewInt(n)).Hex()
}

// CreateTestRawOrder creates an open Dutch_V2 order as served by the order source.
func CreateTestRawOrder(hash string, createdAt int64, opts ...OrderOption) types.RawOrder {
	encoded, err := CreateTestCosignedOrder(opts...).Encode()
	if err != nil {
		panic(err)
	}

	return types.RawOrder{
		Type:         types.OrderTypeDutchV2,
		OrderStatus:  types.OrderStatusOpen,
		Signature:    hexutil.Encode(bytes.Repeat([]byte{0x22}, 65)),
		EncodedOrder: hexutil.Encode(encoded),
		ChainID:      uniswapx.ChainIDArbitrum,
		OrderHash:    hash,
		Swapper:      Swapper.Hex(),
		CreatedAt:    createdAt,
	}
}
