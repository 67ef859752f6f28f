package types

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// Token is a supported ERC20 token.
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals int32
}

// ToDecimal converts a base-unit amount into whole-token units.
func (t Token) ToDecimal(amount *big.Int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -t.Decimals)
}

// FromDecimal converts whole-token units into a base-unit amount, truncating
// anything below the token's precision.
func (t Token) FromDecimal(value decimal.Decimal) *big.Int {
	return value.Shift(t.Decimals).BigInt()
}

// TokenList is an allow-list of tokens keyed by address.
type TokenList []Token

// Find returns the token with the given address.
func (l TokenList) Find(addr common.Address) (Token, bool) {
	for _, t := range l {
		if t.Address == addr {
			return t, true
		}
	}
	return Token{}, false
}

// Symbols returns the symbols of all tokens in the list.
func (l TokenList) Symbols() string {
	symbols := make([]string, 0, len(l))
	for _, t := range l {
		symbols = append(symbols, t.Symbol)
	}
	return strings.Join(symbols, ",")
}

// Receipt summarises a confirmed settlement transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	// Logs are the events emitted by the transaction, token transfers included.
	Logs []*gethtypes.Log
}
