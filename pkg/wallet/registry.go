package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/pkg/cache"
	"github.com/mselser95/dutch-filler/pkg/types"
	"go.uber.org/zap"
)

// UnknownDecimals marks a configured token whose decimals must be read from the chain.
const UnknownDecimals int32 = -1

// decimalsTTL of zero keeps decimals for the process lifetime; they never change.
const decimalsTTL time.Duration = 0

// DecimalsReader reads token decimals.
type DecimalsReader interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// Registry resolves token metadata, caching chain reads.
type Registry struct {
	reader DecimalsReader
	cache  cache.Cache
	logger *zap.Logger
}

// NewRegistry creates a token registry.
func NewRegistry(reader DecimalsReader, c cache.Cache, logger *zap.Logger) *Registry {
	return &Registry{
		reader: reader,
		cache:  c,
		logger: logger,
	}
}

// Decimals returns the decimals of token, reading the chain on a cache miss.
func (r *Registry) Decimals(ctx context.Context, token common.Address) (int32, error) {
	key := "decimals:" + token.Hex()

	if v, ok := r.cache.Get(key); ok {
		if d, ok := v.(uint8); ok {
			return int32(d), nil
		}
	}

	d, err := r.reader.Decimals(ctx, token)
	if err != nil {
		return 0, err
	}

	r.cache.Set(key, d, decimalsTTL)
	r.cache.Wait()

	r.logger.Debug("token-decimals-resolved",
		zap.String("token", token.Hex()),
		zap.Uint8("decimals", d))

	return int32(d), nil
}

// Resolve returns a copy of tokens with every UnknownDecimals entry filled in.
func (r *Registry) Resolve(ctx context.Context, tokens types.TokenList) (types.TokenList, error) {
	resolved := make(types.TokenList, len(tokens))

	for i, t := range tokens {
		if t.Decimals == UnknownDecimals {
			d, err := r.Decimals(ctx, t.Address)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", t.Symbol, err)
			}
			t.Decimals = d
		}
		resolved[i] = t
	}

	return resolved, nil
}
