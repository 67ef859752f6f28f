package config

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/wallet"
	"github.com/shopspring/decimal"
)

func validConfig() *Config {
	tokens, _ := ParseTokens(defaultOutputTokens)
	inputs, _ := ParseTokens(defaultInputTokens)

	return &Config{
		HTTPPort:        "8080",
		PollInterval:    time.Second,
		ChainID:         42161,
		RPCURL:          "http://localhost:8545",
		OrderSourceURL:  "https://orders.test",
		OrderFetchLimit: 2,
		PriceFeedURL:    "https://prices.test",
		InputTokens:     inputs,
		OutputTokens:    tokens,
		ExecutionMode:   ModePaper,
		FillGasLimit:    600_000,
		StorageMode:     StorageConsole,
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("RPC_URL", "http://localhost:8545")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.PollInterval != 3500*time.Millisecond {
		t.Errorf("expected poll interval 3.5s, got %v", cfg.PollInterval)
	}
	if cfg.ChainID != 42161 {
		t.Errorf("expected chain 42161, got %d", cfg.ChainID)
	}
	if cfg.OrderFetchLimit != 2 {
		t.Errorf("expected fetch limit 2, got %d", cfg.OrderFetchLimit)
	}
	if cfg.ExecutionMode != ModePaper {
		t.Errorf("expected paper mode, got %s", cfg.ExecutionMode)
	}
	if cfg.InputTokens.Symbols() != "WETH,WBTC" {
		t.Errorf("expected WETH,WBTC inputs, got %s", cfg.InputTokens.Symbols())
	}
	if cfg.OutputTokens.Symbols() != "USDC,USDT" {
		t.Errorf("expected USDC,USDT outputs, got %s", cfg.OutputTokens.Symbols())
	}
	if !cfg.MaxFillAmount.IsZero() {
		t.Errorf("expected unlimited max fill, got %s", cfg.MaxFillAmount)
	}
	if cfg.SubmitTimeout != 2*time.Minute {
		t.Errorf("expected submit timeout 2m, got %v", cfg.SubmitTimeout)
	}
	if cfg.TelegramEnabled() {
		t.Error("expected telegram disabled by default")
	}
	if cfg.RebalanceEnabled {
		t.Error("expected rebalance disabled by default")
	}
	if cfg.RebalanceFee != 3000 || cfg.RebalanceSlippageBps != 50 {
		t.Errorf("expected fee 3000 and 50 bps, got %d and %d", cfg.RebalanceFee, cfg.RebalanceSlippageBps)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("POLL_INTERVAL", "200ms")
	t.Setenv("EXECUTION_MODE", "live")
	t.Setenv("FILLER_PRIVATE_KEY", "0xabc123")
	t.Setenv("MAX_FILL_AMOUNT", "2500.50")
	t.Setenv("OUTPUT_TOKENS", "usdc:0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot")
	t.Setenv("TELEGRAM_CHAT_ID", "-100")
	t.Setenv("TELEGRAM_TOPIC_ID", "7")
	t.Setenv("REBALANCE_ENABLED", "true")
	t.Setenv("REBALANCE_SLIPPAGE_BPS", "25")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.PollInterval != 200*time.Millisecond {
		t.Errorf("expected 200ms, got %v", cfg.PollInterval)
	}
	if cfg.PrivateKey != "abc123" {
		t.Errorf("expected 0x prefix stripped, got %q", cfg.PrivateKey)
	}
	if !cfg.MaxFillAmount.Equal(decimal.RequireFromString("2500.5")) {
		t.Errorf("expected max fill 2500.5, got %s", cfg.MaxFillAmount)
	}
	if len(cfg.OutputTokens) != 1 || cfg.OutputTokens[0].Symbol != "USDC" {
		t.Fatalf("expected single USDC output, got %+v", cfg.OutputTokens)
	}
	if cfg.OutputTokens[0].Decimals != wallet.UnknownDecimals {
		t.Errorf("expected unknown decimals, got %d", cfg.OutputTokens[0].Decimals)
	}
	if !cfg.TelegramEnabled() || cfg.TelegramTopicID != 7 {
		t.Errorf("expected telegram enabled with topic 7, got %v %d", cfg.TelegramEnabled(), cfg.TelegramTopicID)
	}
	if !cfg.RebalanceEnabled || cfg.RebalanceSlippageBps != 25 {
		t.Errorf("expected rebalance enabled at 25 bps, got %v %d", cfg.RebalanceEnabled, cfg.RebalanceSlippageBps)
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad-tokens", "INPUT_TOKENS", "WETH"},
		{"bad-address", "INPUT_TOKENS", "WETH:0x1234"},
		{"bad-max-fill", "MAX_FILL_AMOUNT", "lots"},
		{"unknown-chain", "CHAIN_ID", "5"},
		{"bad-mode", "EXECUTION_MODE", "yolo"},
		{"rebalance-in-paper", "REBALANCE_ENABLED", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RPC_URL", "http://localhost:8545")
			t.Setenv(tt.key, tt.val)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var cfgErr *types.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %T", err)
			}
			if cfgErr.Key != tt.key {
				t.Errorf("expected key %s, got %s", tt.key, cfgErr.Key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantKey string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing-rpc", func(c *Config) { c.RPCURL = "" }, "RPC_URL"},
		{"interval-too-short", func(c *Config) { c.PollInterval = 10 * time.Millisecond }, "POLL_INTERVAL"},
		{"zero-fetch-limit", func(c *Config) { c.OrderFetchLimit = 0 }, "ORDER_FETCH_LIMIT"},
		{"no-inputs", func(c *Config) { c.InputTokens = nil }, "INPUT_TOKENS"},
		{"no-outputs", func(c *Config) { c.OutputTokens = nil }, "OUTPUT_TOKENS"},
		{"negative-max-fill", func(c *Config) { c.MaxFillAmount = decimal.NewFromInt(-1) }, "MAX_FILL_AMOUNT"},
		{"live-without-key", func(c *Config) { c.ExecutionMode = ModeLive }, "FILLER_PRIVATE_KEY"},
		{"bad-filler-address", func(c *Config) { c.FillerAddress = "0x12" }, "FILLER_ADDRESS"},
		{"zero-gas", func(c *Config) { c.FillGasLimit = 0 }, "FILL_GAS_LIMIT"},
		{"rebalance-in-paper", func(c *Config) { c.RebalanceEnabled = true }, "REBALANCE_ENABLED"},
		{"rebalance-live", func(c *Config) {
			c.ExecutionMode = ModeLive
			c.PrivateKey = "abc123"
			c.RebalanceEnabled = true
		}, ""},
		{"slippage-out-of-range", func(c *Config) { c.RebalanceSlippageBps = 10_000 }, "REBALANCE_SLIPPAGE_BPS"},
		{"bad-storage", func(c *Config) { c.StorageMode = "s3" }, "STORAGE_MODE"},
		{"telegram-without-chat", func(c *Config) { c.TelegramBotToken = "bot" }, "TELEGRAM_CHAT_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantKey == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}

			var cfgErr *types.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Key != tt.wantKey {
				t.Errorf("expected key %s, got %s (%v)", tt.wantKey, cfgErr.Key, err)
			}
		})
	}
}

func TestParseTokens(t *testing.T) {
	tokens, err := ParseTokens(" WETH:0x82aF49447D8a07e3bd95BD0d56f35241523fBab1:18 , wbtc:0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f,")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	if tokens[0].Decimals != 18 {
		t.Errorf("expected 18 decimals, got %d", tokens[0].Decimals)
	}
	if tokens[1].Symbol != "WBTC" || tokens[1].Decimals != wallet.UnknownDecimals {
		t.Errorf("unexpected token %+v", tokens[1])
	}
	if tokens[1].Address != common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f") {
		t.Errorf("unexpected address %s", tokens[1].Address.Hex())
	}

	for _, bad := range []string{"WETH", ":0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", "WETH:0x82aF49447D8a07e3bd95BD0d56f35241523fBab1:300"} {
		if _, err := ParseTokens(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
