// Package uniswapx encodes and decodes cosigned V2 Dutch orders and builds
// settlement calldata for the order reactor.
package uniswapx

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mselser95/dutch-filler/pkg/types"
)

// OrderInfo is the base order information shared by all reactor order kinds.
type OrderInfo struct {
	Reactor                      common.Address
	Swapper                      common.Address
	Nonce                        *big.Int
	Deadline                     *big.Int
	AdditionalValidationContract common.Address
	AdditionalValidationData     []byte
}

// DutchInput is the ABI shape of the input leg.
type DutchInput struct {
	Token       common.Address
	StartAmount *big.Int
	EndAmount   *big.Int
}

// DutchOutput is the ABI shape of an output leg.
type DutchOutput struct {
	Token       common.Address
	StartAmount *big.Int
	EndAmount   *big.Int
	Recipient   common.Address
}

// CosignerData holds the parameters layered onto the order by the cosigner.
type CosignerData struct {
	DecayStartTime         *big.Int
	DecayEndTime           *big.Int
	ExclusiveFiller        common.Address
	ExclusivityOverrideBps *big.Int
	InputOverride          *big.Int
	OutputOverrides        []*big.Int
}

// CosignedOrder is the full ABI shape of a cosigned V2 Dutch order.
type CosignedOrder struct {
	Info         OrderInfo
	Cosigner     common.Address
	BaseInput    DutchInput
	BaseOutputs  []DutchOutput
	CosignerData CosignerData
	Cosignature  []byte
}

// SignedOrder is the argument of the reactor's execute function.
type SignedOrder struct {
	Order []byte
	Sig   []byte
}

const reactorABIJSON = `[{"inputs":[{"components":[{"internalType":"bytes","name":"order","type":"bytes"},{"internalType":"bytes","name":"sig","type":"bytes"}],"internalType":"struct SignedOrder","name":"order","type":"tuple"}],"name":"execute","outputs":[],"stateMutability":"payable","type":"function"}]`

//nolint:gochecknoglobals // Parsed once at init
var (
	orderArguments abi.Arguments
	reactorABI     abi.ABI
)

//nolint:gochecknoinits // ABI definitions are static
func init() {
	orderType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "info", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "reactor", Type: "address"},
			{Name: "swapper", Type: "address"},
			{Name: "nonce", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
			{Name: "additionalValidationContract", Type: "address"},
			{Name: "additionalValidationData", Type: "bytes"},
		}},
		{Name: "cosigner", Type: "address"},
		{Name: "baseInput", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "token", Type: "address"},
			{Name: "startAmount", Type: "uint256"},
			{Name: "endAmount", Type: "uint256"},
		}},
		{Name: "baseOutputs", Type: "tuple[]", Components: []abi.ArgumentMarshaling{
			{Name: "token", Type: "address"},
			{Name: "startAmount", Type: "uint256"},
			{Name: "endAmount", Type: "uint256"},
			{Name: "recipient", Type: "address"},
		}},
		{Name: "cosignerData", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "decayStartTime", Type: "uint256"},
			{Name: "decayEndTime", Type: "uint256"},
			{Name: "exclusiveFiller", Type: "address"},
			{Name: "exclusivityOverrideBps", Type: "uint256"},
			{Name: "inputOverride", Type: "uint256"},
			{Name: "outputOverrides", Type: "uint256[]"},
		}},
		{Name: "cosignature", Type: "bytes"},
	})
	if err != nil {
		panic(fmt.Sprintf("build order ABI type: %v", err))
	}
	orderArguments = abi.Arguments{{Type: orderType}}

	reactorABI, err = abi.JSON(strings.NewReader(reactorABIJSON))
	if err != nil {
		panic(fmt.Sprintf("parse reactor ABI: %v", err))
	}
}

// Encode serialises the order the way the order source publishes it.
func (c *CosignedOrder) Encode() ([]byte, error) {
	data, err := orderArguments.Pack(c.withZeroDefaults())
	if err != nil {
		return nil, fmt.Errorf("pack order: %w", err)
	}
	return data, nil
}

// withZeroDefaults returns a copy with nil integers replaced by zero so the
// packer never dereferences a nil *big.Int.
func (c *CosignedOrder) withZeroDefaults() CosignedOrder {
	out := *c
	out.Info.Nonce = orZero(out.Info.Nonce)
	out.Info.Deadline = orZero(out.Info.Deadline)
	out.BaseInput.StartAmount = orZero(out.BaseInput.StartAmount)
	out.BaseInput.EndAmount = orZero(out.BaseInput.EndAmount)

	out.BaseOutputs = make([]DutchOutput, len(c.BaseOutputs))
	for i, o := range c.BaseOutputs {
		o.StartAmount = orZero(o.StartAmount)
		o.EndAmount = orZero(o.EndAmount)
		out.BaseOutputs[i] = o
	}

	cd := &out.CosignerData
	cd.DecayStartTime = orZero(cd.DecayStartTime)
	cd.DecayEndTime = orZero(cd.DecayEndTime)
	cd.ExclusivityOverrideBps = orZero(cd.ExclusivityOverrideBps)
	cd.InputOverride = orZero(cd.InputOverride)
	cd.OutputOverrides = make([]*big.Int, len(c.CosignerData.OutputOverrides))
	for i, v := range c.CosignerData.OutputOverrides {
		cd.OutputOverrides[i] = orZero(v)
	}

	if out.Info.AdditionalValidationData == nil {
		out.Info.AdditionalValidationData = []byte{}
	}
	if out.Cosignature == nil {
		out.Cosignature = []byte{}
	}

	return out
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Decode parses an ABI-encoded cosigned order.
func Decode(data []byte) (order *CosignedOrder, err error) {
	if len(data) == 0 {
		return nil, errors.New("empty order payload")
	}

	values, err := orderArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack order: %w", err)
	}

	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected value count %d", len(values))
	}

	// ConvertType panics on shape mismatch; the ABI type fixes the shape, so
	// a panic here means corrupt data slipped past Unpack.
	defer func() {
		if r := recover(); r != nil {
			order = nil
			err = fmt.Errorf("convert order: %v", r)
		}
	}()

	order = abi.ConvertType(values[0], new(CosignedOrder)).(*CosignedOrder)
	return order, nil
}

// DecodeHex parses a 0x-prefixed encoded order.
func DecodeHex(encoded string) (*CosignedOrder, error) {
	data, err := hexutil.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return Decode(data)
}

// ToOrder applies the cosigner overrides and returns the order model.
// Hash, status and signature are left for the caller to fill in.
func (c *CosignedOrder) ToOrder(chainID int64) (*types.Order, error) {
	cd := c.CosignerData

	if cd.DecayStartTime == nil || cd.DecayEndTime == nil || c.Info.Deadline == nil {
		return nil, errors.New("order schedule missing")
	}

	if !cd.DecayStartTime.IsUint64() || !cd.DecayEndTime.IsUint64() || !c.Info.Deadline.IsUint64() {
		return nil, errors.New("order schedule out of range")
	}

	if len(cd.OutputOverrides) != 0 && len(cd.OutputOverrides) != len(c.BaseOutputs) {
		return nil, fmt.Errorf("output override count %d does not match output count %d",
			len(cd.OutputOverrides), len(c.BaseOutputs))
	}

	input := types.DutchInput{
		Token:       c.BaseInput.Token,
		StartAmount: new(big.Int).Set(c.BaseInput.StartAmount),
		EndAmount:   new(big.Int).Set(c.BaseInput.EndAmount),
	}
	if cd.InputOverride != nil && cd.InputOverride.Sign() > 0 {
		if cd.InputOverride.Cmp(c.BaseInput.StartAmount) > 0 {
			return nil, fmt.Errorf("input override %s exceeds base input %s",
				cd.InputOverride, c.BaseInput.StartAmount)
		}
		input.StartAmount = new(big.Int).Set(cd.InputOverride)
	}

	outputs := make([]types.DutchOutput, len(c.BaseOutputs))
	for i, base := range c.BaseOutputs {
		outputs[i] = types.DutchOutput{
			Token:       base.Token,
			StartAmount: new(big.Int).Set(base.StartAmount),
			EndAmount:   new(big.Int).Set(base.EndAmount),
			Recipient:   base.Recipient,
		}

		if len(cd.OutputOverrides) == 0 {
			continue
		}

		override := cd.OutputOverrides[i]
		if override == nil || override.Sign() == 0 {
			continue
		}
		if override.Cmp(base.StartAmount) < 0 {
			return nil, fmt.Errorf("output %d override %s below base output %s", i, override, base.StartAmount)
		}
		outputs[i].StartAmount = new(big.Int).Set(override)
	}

	order := &types.Order{
		ChainID:        chainID,
		Maker:          c.Info.Swapper,
		Filler:         cd.ExclusiveFiller,
		Reactor:        c.Info.Reactor,
		Cosigner:       c.Cosigner,
		Nonce:          c.Info.Nonce,
		DecayStartTime: cd.DecayStartTime.Uint64(),
		DecayEndTime:   cd.DecayEndTime.Uint64(),
		Deadline:       c.Info.Deadline.Uint64(),
		Input:          input,
		Outputs:        outputs,
		Type:           types.OrderTypeDutchV2,
	}

	err := order.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate order: %w", err)
	}

	return order, nil
}

// ExecuteCalldata builds the reactor execute((bytes,bytes)) call for a signed order.
func ExecuteCalldata(encodedOrder []byte, sig []byte) ([]byte, error) {
	data, err := reactorABI.Pack("execute", SignedOrder{Order: encodedOrder, Sig: sig})
	if err != nil {
		return nil, fmt.Errorf("pack execute: %w", err)
	}
	return data, nil
}
