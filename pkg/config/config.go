package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
	"github.com/mselser95/dutch-filler/pkg/wallet"
	"github.com/shopspring/decimal"
)

const (
	ModePaper = "paper"
	ModeLive  = "live"

	StorageConsole  = "console"
	StoragePostgres = "postgres"

	minPollInterval = 50 * time.Millisecond

	defaultInputTokens  = "WETH:0x82aF49447D8a07e3bd95BD0d56f35241523fBab1:18,WBTC:0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f:8"
	defaultOutputTokens = "USDC:0xaf88d065e77c8cC2239327C5EDb3A432268e5831:6,USDT:0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9:6"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Scheduler
	PollInterval time.Duration

	// Chain
	ChainID    int64
	RPCURL     string
	PrivateKey string

	// FillerAddress is used for balance reads when no private key is set.
	FillerAddress string

	// Order source
	OrderSourceURL  string
	OrderFetchLimit int

	// Reference price feed
	PriceFeedURL string

	// Identification
	InputTokens       types.TokenList
	OutputTokens      types.TokenList
	IgnoreOrderHashes string

	// Evaluation
	MaxFillAmount decimal.Decimal

	// Execution
	ExecutionMode string
	FillGasLimit  uint64

	// Rebalance swaps fill proceeds back into the output token (live only).
	RebalanceEnabled     bool
	RebalanceFee         uint32
	RebalanceSlippageBps int64
	RebalanceGasLimit    uint64
	RebalanceTimeout     time.Duration

	// Timeouts
	FetchTimeout   time.Duration
	PriceTimeout   time.Duration
	BalanceTimeout time.Duration
	SubmitTimeout  time.Duration

	// Notifications
	TelegramAPIURL   string
	TelegramBotToken string
	TelegramChatID   string
	TelegramTopicID  int64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// Wallet
	WalletTrackInterval time.Duration

	// parse errors collected while loading, reported by Validate.
	loadErrs []error
}

// LoadFromEnv loads configuration from a .env file, if present, and then
// environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		PollInterval: getDurationOrDefault("POLL_INTERVAL", 3500*time.Millisecond),

		// Chain defaults
		ChainID:    getInt64OrDefault("CHAIN_ID", uniswapx.ChainIDArbitrum),
		RPCURL:     os.Getenv("RPC_URL"),
		PrivateKey: strings.TrimPrefix(os.Getenv("FILLER_PRIVATE_KEY"), "0x"),

		FillerAddress: os.Getenv("FILLER_ADDRESS"),

		// Upstream APIs
		OrderSourceURL:    getEnvOrDefault("ORDER_SOURCE_URL", "https://api.uniswap.org/v2"),
		OrderFetchLimit:   getIntOrDefault("ORDER_FETCH_LIMIT", 2),
		PriceFeedURL:      getEnvOrDefault("PRICE_FEED_URL", "https://api.binance.us/api/v3"),
		IgnoreOrderHashes: os.Getenv("IGNORE_ORDER_HASHES"),

		// Execution defaults
		ExecutionMode: getEnvOrDefault("EXECUTION_MODE", ModePaper),
		FillGasLimit:  uint64(getInt64OrDefault("FILL_GAS_LIMIT", 600_000)),

		RebalanceEnabled:     getBoolOrDefault("REBALANCE_ENABLED", false),
		RebalanceFee:         uint32(getInt64OrDefault("REBALANCE_FEE", int64(uniswapx.FeeMedium))),
		RebalanceSlippageBps: getInt64OrDefault("REBALANCE_SLIPPAGE_BPS", 50),
		RebalanceGasLimit:    uint64(getInt64OrDefault("REBALANCE_GAS_LIMIT", 300_000)),
		RebalanceTimeout:     getDurationOrDefault("REBALANCE_TIMEOUT", 2*time.Minute),

		FetchTimeout:   getDurationOrDefault("FETCH_TIMEOUT", 5*time.Second),
		PriceTimeout:   getDurationOrDefault("PRICE_TIMEOUT", 5*time.Second),
		BalanceTimeout: getDurationOrDefault("BALANCE_TIMEOUT", 5*time.Second),
		SubmitTimeout:  getDurationOrDefault("SUBMIT_TIMEOUT", 2*time.Minute),

		// Notification defaults
		TelegramAPIURL:   getEnvOrDefault("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		TelegramTopicID:  getInt64OrDefault("TELEGRAM_TOPIC_ID", 0),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", StorageConsole),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "filler"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "filler"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "dutch_filler"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		WalletTrackInterval: getDurationOrDefault("WALLET_TRACK_INTERVAL", time.Minute),
	}

	cfg.InputTokens = cfg.parseTokens("INPUT_TOKENS", defaultInputTokens)
	cfg.OutputTokens = cfg.parseTokens("OUTPUT_TOKENS", defaultOutputTokens)
	cfg.MaxFillAmount = cfg.parseDecimal("MAX_FILL_AMOUNT", decimal.Zero)

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. It returns a
// *types.ConfigError naming the first offending setting.
func (c *Config) Validate() error {
	if len(c.loadErrs) > 0 {
		return c.loadErrs[0]
	}

	if c.HTTPPort == "" {
		return &types.ConfigError{Key: "HTTP_PORT", Message: "cannot be empty"}
	}

	if c.PollInterval < minPollInterval {
		return &types.ConfigError{Key: "POLL_INTERVAL", Message: fmt.Sprintf("must be at least %s, got %s", minPollInterval, c.PollInterval)}
	}

	if _, ok := uniswapx.ReactorAddress(c.ChainID); !ok {
		return &types.ConfigError{Key: "CHAIN_ID", Message: fmt.Sprintf("has no known reactor: %d", c.ChainID)}
	}

	if c.RPCURL == "" {
		return &types.ConfigError{Key: "RPC_URL", Message: "is required"}
	}

	if c.OrderSourceURL == "" {
		return &types.ConfigError{Key: "ORDER_SOURCE_URL", Message: "cannot be empty"}
	}

	if c.OrderFetchLimit <= 0 {
		return &types.ConfigError{Key: "ORDER_FETCH_LIMIT", Message: fmt.Sprintf("must be positive, got %d", c.OrderFetchLimit)}
	}

	if c.PriceFeedURL == "" {
		return &types.ConfigError{Key: "PRICE_FEED_URL", Message: "cannot be empty"}
	}

	if len(c.InputTokens) == 0 {
		return &types.ConfigError{Key: "INPUT_TOKENS", Message: "cannot be empty"}
	}

	if len(c.OutputTokens) == 0 {
		return &types.ConfigError{Key: "OUTPUT_TOKENS", Message: "cannot be empty"}
	}

	if c.MaxFillAmount.IsNegative() {
		return &types.ConfigError{Key: "MAX_FILL_AMOUNT", Message: "cannot be negative"}
	}

	if c.ExecutionMode != ModePaper && c.ExecutionMode != ModeLive {
		return &types.ConfigError{Key: "EXECUTION_MODE", Message: fmt.Sprintf("must be 'paper' or 'live', got %q", c.ExecutionMode)}
	}

	if c.ExecutionMode == ModeLive && c.PrivateKey == "" {
		return &types.ConfigError{Key: "FILLER_PRIVATE_KEY", Message: "is required in live mode"}
	}

	if c.FillerAddress != "" && !common.IsHexAddress(c.FillerAddress) {
		return &types.ConfigError{Key: "FILLER_ADDRESS", Message: fmt.Sprintf("is not an address: %q", c.FillerAddress)}
	}

	if c.FillGasLimit == 0 {
		return &types.ConfigError{Key: "FILL_GAS_LIMIT", Message: "must be positive"}
	}

	if c.RebalanceEnabled {
		if c.ExecutionMode != ModeLive {
			return &types.ConfigError{Key: "REBALANCE_ENABLED", Message: "requires live execution mode"}
		}
		if _, ok := uniswapx.SwapRouterAddress(c.ChainID); !ok {
			return &types.ConfigError{Key: "REBALANCE_ENABLED", Message: fmt.Sprintf("no known swap router on chain %d", c.ChainID)}
		}
	}

	if c.RebalanceSlippageBps < 0 || c.RebalanceSlippageBps >= 10_000 {
		return &types.ConfigError{Key: "REBALANCE_SLIPPAGE_BPS", Message: fmt.Sprintf("must be in [0, 10000), got %d", c.RebalanceSlippageBps)}
	}

	if c.StorageMode != StorageConsole && c.StorageMode != StoragePostgres {
		return &types.ConfigError{Key: "STORAGE_MODE", Message: fmt.Sprintf("must be 'console' or 'postgres', got %q", c.StorageMode)}
	}

	if c.TelegramBotToken != "" && c.TelegramChatID == "" {
		return &types.ConfigError{Key: "TELEGRAM_CHAT_ID", Message: "is required when TELEGRAM_BOT_TOKEN is set"}
	}

	return nil
}

// TelegramEnabled reports whether notifications should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// ParseTokens parses a comma-separated list of SYMBOL:0xADDRESS[:DECIMALS]
// entries. Tokens without decimals get wallet.UnknownDecimals.
func ParseTokens(list string) (types.TokenList, error) {
	var tokens types.TokenList
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
			return nil, fmt.Errorf("invalid token %q: want SYMBOL:0xADDRESS[:DECIMALS]", entry)
		}

		if !common.IsHexAddress(parts[1]) {
			return nil, fmt.Errorf("invalid token %q: bad address", entry)
		}

		token := types.Token{
			Symbol:   strings.ToUpper(parts[0]),
			Address:  common.HexToAddress(parts[1]),
			Decimals: wallet.UnknownDecimals,
		}

		if len(parts) == 3 {
			dec, err := strconv.ParseUint(parts[2], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid token %q: bad decimals: %w", entry, err)
			}
			token.Decimals = int32(dec)
		}

		tokens = append(tokens, token)
	}
	return tokens, nil
}

func (c *Config) parseTokens(key, defaultValue string) types.TokenList {
	tokens, err := ParseTokens(getEnvOrDefault(key, defaultValue))
	if err != nil {
		c.loadErrs = append(c.loadErrs, &types.ConfigError{Key: key, Message: err.Error()})
	}
	return tokens
}

func (c *Config) parseDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		c.loadErrs = append(c.loadErrs, &types.ConfigError{Key: key, Message: fmt.Sprintf("invalid decimal %q", value)})
		return defaultValue
	}
	return d
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
