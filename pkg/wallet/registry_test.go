package wallet

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/pkg/cache"
	"github.com/mselser95/dutch-filler/pkg/types"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T, backend *fakeBackend) *Registry {
	t.Helper()

	client, err := NewClient(backend, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	c, err := cache.NewRistrettoCache(cache.DefaultRistrettoConfig(zap.NewNop()))
	if err != nil {
		t.Fatalf("NewRistrettoCache() error = %v", err)
	}
	t.Cleanup(c.Close)

	return NewRegistry(client, c, zap.NewNop())
}

func TestRegistry_DecimalsCached(t *testing.T) {
	backend := newFakeBackend()
	backend.decimals[testUSDC] = 6
	registry := newTestRegistry(t, backend)

	for i := 0; i < 3; i++ {
		d, err := registry.Decimals(context.Background(), testUSDC)
		if err != nil {
			t.Fatalf("Decimals() error = %v", err)
		}
		if d != 6 {
			t.Errorf("Decimals() = %d, want 6", d)
		}
	}

	if n := backend.callCount("decimals"); n != 1 {
		t.Errorf("decimals called %d times, want 1", n)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	weth := common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")

	backend := newFakeBackend()
	backend.decimals[testUSDC] = 6
	registry := newTestRegistry(t, backend)

	resolved, err := registry.Resolve(context.Background(), types.TokenList{
		{Symbol: "USDC", Address: testUSDC, Decimals: UnknownDecimals},
		{Symbol: "WETH", Address: weth, Decimals: 18},
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if resolved[0].Decimals != 6 || resolved[1].Decimals != 18 {
		t.Errorf("Resolve() decimals = %d,%d, want 6,18", resolved[0].Decimals, resolved[1].Decimals)
	}
}

func TestRegistry_ResolveUnknownToken(t *testing.T) {
	registry := newTestRegistry(t, newFakeBackend())

	_, err := registry.Resolve(context.Background(), types.TokenList{
		{Symbol: "NOPE", Address: common.HexToAddress("0x01"), Decimals: UnknownDecimals},
	})
	if err == nil {
		t.Error("expected error for token without code")
	}
}
