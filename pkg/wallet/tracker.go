package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/pkg/types"
	"go.uber.org/zap"
)

const pollTimeout = 15 * time.Second

// Tracker periodically reads the filler's balances and updates Prometheus metrics.
type Tracker struct {
	client       *Client
	tokens       types.TokenList
	spender      common.Address
	address      common.Address
	pollInterval time.Duration
	logger       *zap.Logger
}

// Config holds tracker configuration.
type Config struct {
	Client *Client
	// Tokens are the output tokens the filler pays out.
	Tokens types.TokenList
	// Spender is the settlement contract that pulls output tokens.
	Spender      common.Address
	Address      common.Address
	PollInterval time.Duration
	Logger       *zap.Logger
}

// New creates a new wallet tracker.
func New(cfg *Config) (t *Tracker, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Client == nil {
		return nil, errors.New("client cannot be nil")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	tracker := &Tracker{
		client:       cfg.Client,
		tokens:       cfg.Tokens,
		spender:      cfg.Spender,
		address:      cfg.Address,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}

	return tracker, nil
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) (err error) {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()),
		zap.String("tokens", t.tokens.Symbols()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	pollErr := t.poll(ctx)
	if pollErr != nil {
		t.logger.Error("initial-poll-failed", zap.Error(pollErr))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			pollErr = t.poll(ctx)
			if pollErr != nil {
				t.logger.Error("poll-failed", zap.Error(pollErr))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

// poll performs a single polling cycle.
func (t *Tracker) poll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	native, err := t.client.NativeBalance(ctx, t.address)
	if err != nil {
		return err
	}

	nativeVal, _ := types.Token{Decimals: 18}.ToDecimal(native).Float64()
	NativeBalance.Set(nativeVal)

	for _, token := range t.tokens {
		balance, err := t.client.BalanceOf(ctx, token.Address, t.address)
		if err != nil {
			return fmt.Errorf("get %s balance: %w", token.Symbol, err)
		}

		allowance, err := t.client.Allowance(ctx, token.Address, t.address, t.spender)
		if err != nil {
			return fmt.Errorf("get %s allowance: %w", token.Symbol, err)
		}

		balanceVal, _ := token.ToDecimal(balance).Float64()
		TokenBalance.WithLabelValues(token.Symbol).Set(balanceVal)

		allowanceVal, _ := token.ToDecimal(allowance).Float64()
		TokenAllowance.WithLabelValues(token.Symbol).Set(allowanceVal)
	}

	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("poll-complete",
		zap.Int("token-count", len(t.tokens)),
		zap.Duration("duration", time.Since(start)))

	return nil
}
