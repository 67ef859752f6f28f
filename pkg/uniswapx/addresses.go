package uniswapx

import "github.com/ethereum/go-ethereum/common"

const (
	ChainIDMainnet  int64 = 1
	ChainIDArbitrum int64 = 42161
)

//nolint:gochecknoglobals // Static deployment tables
var (
	reactorAddresses = map[int64]common.Address{
		ChainIDMainnet:  common.HexToAddress("0x00000011F84B9aa48e5f8aA8B9897600006289Be"),
		ChainIDArbitrum: common.HexToAddress("0x1bd1aAdc9E230626C44a139d7E70d842749351eb"),
	}

	permit2Addresses = map[int64]common.Address{
		ChainIDMainnet:  common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3"),
		ChainIDArbitrum: common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3"),
	}

	// Uniswap V3 SwapRouter, used to swap received input tokens back.
	swapRouterAddresses = map[int64]common.Address{
		ChainIDMainnet:  common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
		ChainIDArbitrum: common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
	}
)

// ReactorAddress returns the V2 Dutch order reactor deployed on the chain.
func ReactorAddress(chainID int64) (common.Address, bool) {
	addr, ok := reactorAddresses[chainID]
	return addr, ok
}

// Permit2Address returns the Permit2 contract deployed on the chain.
func Permit2Address(chainID int64) (common.Address, bool) {
	addr, ok := permit2Addresses[chainID]
	return addr, ok
}

// SwapRouterAddress returns the Uniswap V3 SwapRouter deployed on the chain.
func SwapRouterAddress(chainID int64) (common.Address, bool) {
	addr, ok := swapRouterAddresses[chainID]
	return addr, ok
}
