package cmd

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mselser95/dutch-filler/pkg/cache"
	"github.com/mselser95/dutch-filler/pkg/config"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/wallet"
	"go.uber.org/zap"
)

// loadCLIConfig loads configuration and builds the logger.
func loadCLIConfig() (cfg *config.Config, logger *zap.Logger, err error) {
	cfg, err = config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err = config.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}

// chainSession is an RPC connection with resolved token allow-lists.
type chainSession struct {
	eth          *ethclient.Client
	wallet       *wallet.Client
	cache        *cache.RistrettoCache
	inputTokens  types.TokenList
	outputTokens types.TokenList
}

func openChainSession(ctx context.Context, cfg *config.Config, rpcURL string, logger *zap.Logger) (*chainSession, error) {
	if rpcURL == "" {
		rpcURL = cfg.RPCURL
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	s := &chainSession{eth: eth}

	s.wallet, err = wallet.NewClient(eth, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create wallet client: %w", err)
	}

	s.cache, err = cache.NewRistrettoCache(cache.DefaultRistrettoConfig(logger))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}

	registry := wallet.NewRegistry(s.wallet, s.cache, logger)

	s.inputTokens, err = registry.Resolve(ctx, cfg.InputTokens)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("resolve input tokens: %w", err)
	}

	s.outputTokens, err = registry.Resolve(ctx, cfg.OutputTokens)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("resolve output tokens: %w", err)
	}

	return s, nil
}

func (s *chainSession) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
	s.eth.Close()
}

// signerKey parses FILLER_PRIVATE_KEY.
func signerKey(cfg *config.Config) (*ecdsa.PrivateKey, error) {
	if cfg.PrivateKey == "" {
		return nil, &types.ConfigError{Key: "FILLER_PRIVATE_KEY", Message: "is required for this command"}
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, &types.ConfigError{Key: "FILLER_PRIVATE_KEY", Message: "is not a valid secp256k1 key"}
	}
	return key, nil
}

// fillerAddress returns the account the agent fills from: the signer when a
// key is configured, FILLER_ADDRESS otherwise.
func fillerAddress(cfg *config.Config) (common.Address, error) {
	if cfg.PrivateKey != "" {
		key, err := signerKey(cfg)
		if err != nil {
			return common.Address{}, err
		}
		return crypto.PubkeyToAddress(key.PublicKey), nil
	}

	if cfg.FillerAddress == "" {
		return common.Address{}, &types.ConfigError{Key: "FILLER_ADDRESS", Message: "or FILLER_PRIVATE_KEY is required"}
	}
	return common.HexToAddress(cfg.FillerAddress), nil
}
