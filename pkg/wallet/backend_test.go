package wallet

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// fakeBackend answers ERC20 calls from in-memory state.
type fakeBackend struct {
	mu         sync.Mutex
	erc20      abi.ABI
	balances   map[common.Address]*big.Int
	allowances map[common.Address]*big.Int
	decimals   map[common.Address]uint8
	native     *big.Int
	calls      map[string]int
	err        error
}

func newFakeBackend() *fakeBackend {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(err)
	}

	return &fakeBackend{
		erc20:      parsed,
		balances:   map[common.Address]*big.Int{},
		allowances: map[common.Address]*big.Int{},
		decimals:   map[common.Address]uint8{},
		native:     big.NewInt(0),
		calls:      map[string]int{},
	}
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method, err := f.erc20.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	f.calls[method.Name]++

	token := *call.To
	decimals, known := f.decimals[token]
	if !known {
		return []byte{}, nil
	}

	switch method.Name {
	case "balanceOf":
		return method.Outputs.Pack(orZero(f.balances[token]))
	case "allowance":
		return method.Outputs.Pack(orZero(f.allowances[token]))
	case "decimals":
		return method.Outputs.Pack(decimals)
	}

	return nil, errors.New("unsupported method " + method.Name)
}

func (f *fakeBackend) BalanceAt(ctx context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return new(big.Int).Set(f.native), ctx.Err()
}

func (f *fakeBackend) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
