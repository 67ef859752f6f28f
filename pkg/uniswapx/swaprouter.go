package uniswapx

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// FeeMedium is the 0.3% V3 pool fee tier.
const FeeMedium uint32 = 3000

// ExactInputSingleParams is the argument of SwapRouter.exactInputSingle.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int // uint24
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int // uint160, zero for no limit
}

const swapRouterABIJSON = `[{"inputs":[{"components":[{"internalType":"address","name":"tokenIn","type":"address"},{"internalType":"address","name":"tokenOut","type":"address"},{"internalType":"uint24","name":"fee","type":"uint24"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"},{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],"internalType":"struct ISwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"}]`

//nolint:gochecknoglobals // Parsed once at init
var swapRouterABI = mustParseABI(swapRouterABIJSON)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("parse ABI: %v", err))
	}
	return parsed
}

// ExactInputSingleCalldata builds a SwapRouter exactInputSingle call.
func ExactInputSingleCalldata(p *ExactInputSingleParams) ([]byte, error) {
	params := *p
	if params.SqrtPriceLimitX96 == nil {
		params.SqrtPriceLimitX96 = new(big.Int)
	}

	data, err := swapRouterABI.Pack("exactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("pack exactInputSingle: %w", err)
	}
	return data, nil
}

// DecodeExactInputSingle parses exactInputSingle calldata back into its params.
func DecodeExactInputSingle(data []byte) (*ExactInputSingleParams, error) {
	method, err := swapRouterABI.MethodById(data)
	if err != nil {
		return nil, fmt.Errorf("lookup method: %w", err)
	}
	if method.Name != "exactInputSingle" {
		return nil, fmt.Errorf("unexpected method %s", method.Name)
	}

	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack exactInputSingle: %w", err)
	}

	params := abi.ConvertType(values[0], new(ExactInputSingleParams)).(*ExactInputSingleParams)
	return params, nil
}
