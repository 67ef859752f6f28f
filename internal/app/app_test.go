package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	json "github.com/goccy/go-json"
	"github.com/mselser95/dutch-filler/internal/rebalance"
	"github.com/mselser95/dutch-filler/internal/storage"
	"github.com/mselser95/dutch-filler/pkg/config"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

// newRPCServer answers eth_chainId with chainID.
func newRPCServer(t *testing.T, chainID string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.Unmarshal(body, &req)

		w.Header().Set("Content-Type", "application/json")
		if req.Method != "eth_chainId" {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"error":{"code":-32601,"message":"method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":"` + chainID + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, rpcURL string) *config.Config {
	t.Helper()

	inputs, err := config.ParseTokens("WETH:0x82aF49447D8a07e3bd95BD0d56f35241523fBab1:18")
	require.NoError(t, err)
	outputs, err := config.ParseTokens("USDC:0xaf88d065e77c8cC2239327C5EDb3A432268e5831:6")
	require.NoError(t, err)

	return &config.Config{
		HTTPPort:            "0",
		PollInterval:        time.Second,
		ChainID:             42161,
		RPCURL:              rpcURL,
		OrderSourceURL:      "http://orders.invalid",
		OrderFetchLimit:     2,
		PriceFeedURL:        "http://prices.invalid",
		InputTokens:         inputs,
		OutputTokens:        outputs,
		ExecutionMode:       config.ModePaper,
		FillGasLimit:        600_000,
		FetchTimeout:        time.Second,
		PriceTimeout:        time.Second,
		BalanceTimeout:      time.Second,
		SubmitTimeout:       time.Minute,
		StorageMode:         config.StorageConsole,
		WalletTrackInterval: time.Minute,
	}
}

func TestNew_PaperMode(t *testing.T) {
	rpc := newRPCServer(t, "0xa4b1")
	cfg := testConfig(t, rpc.URL)
	cfg.FillerAddress = "0x000000000000000000000000000000000000f111"

	app, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.closeResources(context.Background())

	assert.NotNil(t, app.agent)
	assert.NotNil(t, app.tracker)
	assert.Equal(t, config.ModePaper, app.agent.Status().Mode)
}

func TestNew_LiveModeDerivesFiller(t *testing.T) {
	rpc := newRPCServer(t, "0xa4b1")
	cfg := testConfig(t, rpc.URL)
	cfg.ExecutionMode = config.ModeLive
	cfg.PrivateKey = testKey

	app, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.closeResources(context.Background())

	assert.Equal(t, config.ModeLive, app.agent.Status().Mode)
	assert.NotNil(t, app.tracker)
}

func TestNew_ChainMismatch(t *testing.T) {
	rpc := newRPCServer(t, "0x1")
	cfg := testConfig(t, rpc.URL)

	_, err := New(cfg, zap.NewNop())

	var cfgErr *types.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "CHAIN_ID", cfgErr.Key)
}

func TestNew_InvalidIgnoreHashes(t *testing.T) {
	cfg := testConfig(t, "http://localhost:0")
	cfg.IgnoreOrderHashes = "0x1234"

	_, err := New(cfg, zap.NewNop())

	var cfgErr *types.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "IGNORE_ORDER_HASHES", cfgErr.Key)
}

func TestSetupIdentity(t *testing.T) {
	cfg := testConfig(t, "")

	key, addr, err := setupIdentity(cfg)
	require.NoError(t, err)
	assert.Nil(t, key)
	assert.Equal(t, "0x0000000000000000000000000000000000000000", addr.Hex())

	cfg.PrivateKey = testKey
	key, addr, err = setupIdentity(cfg)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	cfg.FillerAddress = "0x000000000000000000000000000000000000f111"
	_, _, err = setupIdentity(cfg)
	var cfgErr *types.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "FILLER_ADDRESS", cfgErr.Key)

	cfg.PrivateKey = "zz"
	_, _, err = setupIdentity(cfg)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "FILLER_PRIVATE_KEY", cfgErr.Key)
}

type fixedChainID int64

func (f fixedChainID) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(int64(f)), nil
}

func TestCheckChainID(t *testing.T) {
	assert.NoError(t, checkChainID(context.Background(), fixedChainID(42161), 42161))
	assert.Error(t, checkChainID(context.Background(), fixedChainID(1), 42161))
}

func TestSetupJournal_Console(t *testing.T) {
	journal, err := setupJournal(context.Background(), testConfig(t, ""), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.ConsoleJournal{}, journal)
}

func TestSetupSubmitter_PaperHasNone(t *testing.T) {
	submitter, err := setupSubmitter(testConfig(t, ""), nil, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, submitter)
}

type liveSubmitter struct{}

func (liveSubmitter) Submit(context.Context, []byte, []byte) (*types.Receipt, error) {
	return &types.Receipt{}, nil
}

func (liveSubmitter) Send(context.Context, common.Address, []byte, uint64) (*types.Receipt, error) {
	return &types.Receipt{}, nil
}

func (liveSubmitter) Address() common.Address { return common.HexToAddress("0xf111") }

func TestSetupRebalancer(t *testing.T) {
	cfg := testConfig(t, "")

	rb, err := setupRebalancer(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, rb, "disabled by default")

	cfg.RebalanceEnabled = true
	_, err = setupRebalancer(cfg, nil, zap.NewNop())
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "REBALANCE_ENABLED", cfgErr.Key)

	rb, err = setupRebalancer(cfg, liveSubmitter{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &rebalance.Rebalancer{}, rb)
}

func TestStaleAfter(t *testing.T) {
	cfg := testConfig(t, "")
	assert.Equal(t, time.Minute+3*time.Second+10*time.Second, staleAfter(cfg))

	cfg.RebalanceEnabled = true
	cfg.RebalanceTimeout = 2 * time.Minute
	assert.Equal(t, 3*time.Minute+3*time.Second+10*time.Second, staleAfter(cfg))
}
