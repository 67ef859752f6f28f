package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/mselser95/dutch-filler/internal/execution"
	"github.com/mselser95/dutch-filler/internal/identification"
	"github.com/mselser95/dutch-filler/internal/notify"
	"github.com/mselser95/dutch-filler/internal/orders"
	"github.com/mselser95/dutch-filler/internal/pricefeed"
	"github.com/mselser95/dutch-filler/internal/rebalance"
	"github.com/mselser95/dutch-filler/internal/scheduler"
	"github.com/mselser95/dutch-filler/internal/storage"
	"github.com/mselser95/dutch-filler/pkg/cache"
	"github.com/mselser95/dutch-filler/pkg/config"
	"github.com/mselser95/dutch-filler/pkg/healthprobe"
	"github.com/mselser95/dutch-filler/pkg/httpserver"
	"github.com/mselser95/dutch-filler/pkg/settlement"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
	"github.com/mselser95/dutch-filler/pkg/wallet"
	"go.uber.org/zap"
)

const setupTimeout = 30 * time.Second

// New creates a new application instance. Any configuration problem found
// while wiring is returned as *types.ConfigError.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app, err := setup(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	app.ctx = ctx
	app.cancel = cancel
	return app, nil
}

func setup(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	key, filler, err := setupIdentity(cfg)
	if err != nil {
		return nil, err
	}

	ignore, err := identification.ParseIgnoreHashes(cfg.IgnoreOrderHashes)
	if err != nil {
		return nil, &types.ConfigError{Key: "IGNORE_ORDER_HASHES", Message: err.Error()}
	}

	ethClient, err := ethclient.DialContext(setupCtx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	app := &App{
		cfg:       cfg,
		logger:    logger,
		ethClient: ethClient,
	}
	fail := func(err error) (*App, error) {
		app.closeResources(ctx)
		return nil, err
	}

	err = checkChainID(setupCtx, ethClient, cfg.ChainID)
	if err != nil {
		return fail(err)
	}

	walletClient, err := wallet.NewClient(ethClient, logger)
	if err != nil {
		return fail(fmt.Errorf("create wallet client: %w", err))
	}

	app.tokenCache, err = setupCache(logger)
	if err != nil {
		return fail(fmt.Errorf("setup cache: %w", err))
	}

	registry := wallet.NewRegistry(walletClient, app.tokenCache, logger)
	inputTokens, err := registry.Resolve(setupCtx, cfg.InputTokens)
	if err != nil {
		return fail(fmt.Errorf("resolve input tokens: %w", err))
	}
	outputTokens, err := registry.Resolve(setupCtx, cfg.OutputTokens)
	if err != nil {
		return fail(fmt.Errorf("resolve output tokens: %w", err))
	}

	app.journal, err = setupJournal(setupCtx, cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("setup journal: %w", err))
	}

	app.notifier = setupNotifier(cfg, logger)

	submitter, err := setupSubmitter(cfg, ethClient, key, logger)
	if err != nil {
		return fail(fmt.Errorf("setup settlement: %w", err))
	}

	executor, err := setupExecutor(cfg, submitter, app.notifier, logger)
	if err != nil {
		return fail(fmt.Errorf("setup executor: %w", err))
	}

	rebalancer, err := setupRebalancer(cfg, submitter, logger)
	if err != nil {
		return fail(fmt.Errorf("setup rebalancer: %w", err))
	}

	app.healthChecker = healthprobe.New(staleAfter(cfg))

	app.agent, err = scheduler.New(&scheduler.Config{
		Interval: cfg.PollInterval,
		Query:    orders.OpenOrdersQuery(cfg.ChainID, cfg.OrderFetchLimit),
		Filter: identification.New(&identification.Config{
			ChainID:      cfg.ChainID,
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			IgnoreHashes: ignore,
			Logger:       logger,
		}),
		Orders:           orders.NewClient(cfg.OrderSourceURL, cfg.FetchTimeout, logger),
		Prices:           pricefeed.NewClient(cfg.PriceFeedURL, cfg.PriceTimeout, logger),
		Balances:         walletClient,
		Filler:           executor,
		Journal:          app.journal,
		Notifier:         app.notifier,
		FillerAddress:    filler,
		MaxFillAmount:    cfg.MaxFillAmount,
		FetchTimeout:     cfg.FetchTimeout,
		PriceTimeout:     cfg.PriceTimeout,
		BalanceTimeout:   cfg.BalanceTimeout,
		Rebalancer:       rebalancer,
		RebalanceTimeout: cfg.RebalanceTimeout,
		Heartbeat:        app.healthChecker.Heartbeat,
		Logger:           logger,
	})
	if err != nil {
		return fail(fmt.Errorf("create scheduler: %w", err))
	}

	if filler != (common.Address{}) {
		reactor, _ := uniswapx.ReactorAddress(cfg.ChainID)
		app.tracker, err = wallet.New(&wallet.Config{
			Client:       walletClient,
			Tokens:       outputTokens,
			Spender:      reactor,
			Address:      filler,
			PollInterval: cfg.WalletTrackInterval,
			Logger:       logger,
		})
		if err != nil {
			return fail(fmt.Errorf("create wallet tracker: %w", err))
		}
	} else {
		logger.Warn("filler-address-unset",
			zap.String("note", "balances read as zero, every order will be rejected"))
	}

	app.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: app.healthChecker,
		Status:        app.agent,
	})

	logger.Info("application-configured",
		zap.String("mode", cfg.ExecutionMode),
		zap.Int64("chain-id", cfg.ChainID),
		zap.String("filler", filler.Hex()),
		zap.String("input-tokens", inputTokens.Symbols()),
		zap.String("output-tokens", outputTokens.Symbols()),
		zap.Int("ignored-orders", len(ignore)),
		zap.String("storage", cfg.StorageMode),
		zap.Bool("telegram", cfg.TelegramEnabled()),
		zap.Bool("rebalance", rebalancer != nil))

	return app, nil
}

// setupIdentity parses the signer key and returns the filler address. In
// paper mode without a key FILLER_ADDRESS is used.
func setupIdentity(cfg *config.Config) (*ecdsa.PrivateKey, common.Address, error) {
	if cfg.PrivateKey == "" {
		if cfg.FillerAddress == "" {
			return nil, common.Address{}, nil
		}
		return nil, common.HexToAddress(cfg.FillerAddress), nil
	}

	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, common.Address{}, &types.ConfigError{Key: "FILLER_PRIVATE_KEY", Message: "is not a valid secp256k1 key"}
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	if cfg.FillerAddress != "" && common.HexToAddress(cfg.FillerAddress) != address {
		return nil, common.Address{}, &types.ConfigError{
			Key:     "FILLER_ADDRESS",
			Message: fmt.Sprintf("does not match FILLER_PRIVATE_KEY address %s", address.Hex()),
		}
	}

	return key, address, nil
}

type chainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

func checkChainID(ctx context.Context, reader chainIDReader, want int64) error {
	got, err := reader.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}

	if got.Int64() != want {
		return &types.ConfigError{
			Key:     "CHAIN_ID",
			Message: fmt.Sprintf("is %d but RPC_URL serves chain %s", want, got),
		}
	}
	return nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(cache.DefaultRistrettoConfig(logger))
}

func setupJournal(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Journal, error) {
	if cfg.StorageMode == config.StoragePostgres {
		journal, err := storage.NewPostgresJournal(ctx, &storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres journal: %w", err)
		}
		return journal, nil
	}

	return storage.NewConsoleJournal(logger), nil
}

func setupNotifier(cfg *config.Config, logger *zap.Logger) *notify.Notifier {
	var senders []notify.Sender
	if cfg.TelegramEnabled() {
		senders = append(senders, notify.NewTelegramSender(
			cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramTopicID))
	}

	return notify.New(&notify.Config{
		Senders: senders,
		Logger:  logger,
	})
}

func setupSubmitter(
	cfg *config.Config,
	backend settlement.Backend,
	key *ecdsa.PrivateKey,
	logger *zap.Logger,
) (execution.Submitter, error) {
	if cfg.ExecutionMode != config.ModeLive {
		return nil, nil
	}

	return settlement.New(&settlement.Config{
		Backend:    backend,
		PrivateKey: key,
		ChainID:    cfg.ChainID,
		GasLimit:   cfg.FillGasLimit,
		Logger:     logger,
	})
}

func setupExecutor(
	cfg *config.Config,
	submitter execution.Submitter,
	notifier execution.Notifier,
	logger *zap.Logger,
) (*execution.Executor, error) {
	return execution.New(&execution.Config{
		Mode:          cfg.ExecutionMode,
		Submitter:     submitter,
		Notifier:      notifier,
		SubmitTimeout: cfg.SubmitTimeout,
		Logger:        logger,
	})
}

// setupRebalancer returns nil unless rebalancing is enabled. The swap is sent
// from the same account that fills.
func setupRebalancer(
	cfg *config.Config,
	submitter execution.Submitter,
	logger *zap.Logger,
) (scheduler.Rebalancer, error) {
	if !cfg.RebalanceEnabled {
		return nil, nil
	}

	sender, ok := submitter.(rebalance.Sender)
	if !ok {
		return nil, &types.ConfigError{Key: "REBALANCE_ENABLED", Message: "requires live execution mode"}
	}

	return rebalance.New(&rebalance.Config{
		Sender:      sender,
		ChainID:     cfg.ChainID,
		Fee:         cfg.RebalanceFee,
		SlippageBps: cfg.RebalanceSlippageBps,
		GasLimit:    cfg.RebalanceGasLimit,
		Logger:      logger,
	})
}

// staleAfter is how long readiness tolerates no completed cycle. A cycle may
// legitimately block for a whole fill submission.
func staleAfter(cfg *config.Config) time.Duration {
	stale := cfg.SubmitTimeout + cfg.FetchTimeout + cfg.PriceTimeout + cfg.BalanceTimeout + 10*cfg.PollInterval
	if cfg.RebalanceEnabled {
		stale += cfg.RebalanceTimeout
	}
	return stale
}
