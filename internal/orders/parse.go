package orders

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
)

// ParseOrder decodes the signed payload of a raw order into an Order.
// Amounts, schedule and legs come from the encoded payload only; the
// informational JSON fields are ignored.
func ParseOrder(raw *types.RawOrder) (*types.Order, error) {
	if !isHexHash(raw.OrderHash) {
		return nil, &types.ParseError{OrderHash: raw.OrderHash, Err: fmt.Errorf("invalid order hash")}
	}

	encoded, err := hexutil.Decode(raw.EncodedOrder)
	if err != nil {
		return nil, &types.ParseError{OrderHash: raw.OrderHash, Err: fmt.Errorf("decode encoded order: %w", err)}
	}

	sig, err := hexutil.Decode(raw.Signature)
	if err != nil {
		return nil, &types.ParseError{OrderHash: raw.OrderHash, Err: fmt.Errorf("decode signature: %w", err)}
	}

	cosigned, err := uniswapx.Decode(encoded)
	if err != nil {
		return nil, &types.ParseError{OrderHash: raw.OrderHash, Err: err}
	}

	order, err := cosigned.ToOrder(raw.ChainID)
	if err != nil {
		return nil, &types.ParseError{OrderHash: raw.OrderHash, Err: err}
	}

	order.Hash = common.HexToHash(raw.OrderHash)
	order.Status = raw.OrderStatus
	order.Type = raw.Type
	order.CreatedAt = raw.CreatedAt
	order.Encoded = encoded
	order.Signature = sig

	return order, nil
}

func isHexHash(s string) bool {
	if !strings.HasPrefix(s, "0x") || len(s) != 2+2*common.HashLength {
		return false
	}

	_, err := hexutil.Decode(s)
	return err == nil
}
