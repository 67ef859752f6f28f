package testutil

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/mselser95/dutch-filler/pkg/types"
)

// MockOrderSource is a mock HTTP server that simulates the order source API.
type MockOrderSource struct {
	*httptest.Server
	Orders   []types.RawOrder
	Fail     bool
	Requests int
	mu       sync.RWMutex
}

// NewMockOrderSource creates a new mock order source.
func NewMockOrderSource(orders ...types.RawOrder) *MockOrderSource {
	mock := &MockOrderSource{Orders: orders}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		defer mock.mu.Unlock()

		mock.Requests++

		if r.URL.Path != "/orders" {
			http.NotFound(w, r)
			return
		}

		if mock.Fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.OrdersResponse{Orders: mock.Orders})
	})

	mock.Server = httptest.NewServer(handler)
	return mock
}

// SetOrders replaces the served orders.
func (m *MockOrderSource) SetOrders(orders ...types.RawOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orders = orders
}

// SetFail toggles failure responses.
func (m *MockOrderSource) SetFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fail = fail
}

// MockPriceFeed is a mock HTTP server that simulates the exchange depth endpoint.
type MockPriceFeed struct {
	*httptest.Server
	Bids map[string]string
	mu   sync.RWMutex
}

// NewMockPriceFeed creates a mock price feed serving the given top bids per pair.
func NewMockPriceFeed(bids map[string]string) *MockPriceFeed {
	mock := &MockPriceFeed{Bids: bids}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.RLock()
		defer mock.mu.RUnlock()

		if r.URL.Path != "/depth" {
			http.NotFound(w, r)
			return
		}

		bid, ok := mock.Bids[r.URL.Query().Get("symbol")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"lastUpdateId": 1,
			"bids":         [][]string{{bid, "1.5"}},
			"asks":         [][]string{},
		})
	})

	mock.Server = httptest.NewServer(handler)
	return mock
}

// SetBid sets the top bid of a pair.
func (m *MockPriceFeed) SetBid(pair string, bid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bids[pair] = bid
}

// MockBalances is an in-memory token balance reader.
type MockBalances struct {
	Balances map[common.Address]*big.Int
	Err      error
	mu       sync.Mutex
}

// NewMockBalances creates a balance reader with the given balances.
func NewMockBalances(balances map[common.Address]*big.Int) *MockBalances {
	return &MockBalances{Balances: balances}
}

// BalanceOf returns the configured balance of token, or zero.
func (m *MockBalances) BalanceOf(ctx context.Context, token common.Address, _ common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	balance, ok := m.Balances[token]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

// SetBalance sets the balance of a token.
func (m *MockBalances) SetBalance(token common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balances[token] = amount
}

// ErrMockSubmit is returned by MockSubmitter when configured to fail.
var ErrMockSubmit = errors.New("mock submit failed")
