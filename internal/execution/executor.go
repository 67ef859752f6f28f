// Package execution submits accepted orders to the settlement contract.
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/internal/notify"
	"github.com/mselser95/dutch-filler/pkg/settlement"
	"github.com/mselser95/dutch-filler/pkg/types"
	"go.uber.org/zap"
)

const (
	ModePaper = "paper"
	ModeLive  = "live"

	defaultSubmitTimeout = 2 * time.Minute
)

// Submitter sends a signed order to the settlement contract and waits for confirmation.
type Submitter interface {
	Submit(ctx context.Context, encodedOrder []byte, sig []byte) (*types.Receipt, error)
}

// Notifier receives fill outcome notifications. Delivery must not block.
type Notifier interface {
	Notify(event notify.Event, title, body string)
}

// Executor fills orders, either simulated (paper) or on-chain (live).
type Executor struct {
	mode          string
	submitter     Submitter
	notifier      Notifier
	submitTimeout time.Duration
	logger        *zap.Logger
}

// Config holds executor configuration.
type Config struct {
	Mode          string
	Submitter     Submitter // required in live mode
	Notifier      Notifier
	SubmitTimeout time.Duration
	Logger        *zap.Logger
}

// Result describes a completed fill.
type Result struct {
	OrderHash  common.Hash
	Mode       string
	Receipt    *types.Receipt
	ExecutedAt time.Time
}

// New creates a new executor.
func New(cfg *Config) (*Executor, error) {
	switch cfg.Mode {
	case ModePaper:
	case ModeLive:
		if cfg.Submitter == nil {
			return nil, errors.New("live mode requires a submitter")
		}
	default:
		return nil, fmt.Errorf("unknown execution mode: %s", cfg.Mode)
	}

	timeout := cfg.SubmitTimeout
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}

	return &Executor{
		mode:          cfg.Mode,
		submitter:     cfg.Submitter,
		notifier:      cfg.Notifier,
		submitTimeout: timeout,
		logger:        cfg.Logger,
	}, nil
}

// Mode returns the execution mode.
func (e *Executor) Mode() string {
	return e.mode
}

// Fill submits the order once. It never retries; failures are returned as
// *types.FillError and an unknown outcome is marked Unresolved.
func (e *Executor) Fill(ctx context.Context, order *types.Order) (*Result, error) {
	start := time.Now()
	defer func() {
		FillDurationSeconds.WithLabelValues(e.mode).Observe(time.Since(start).Seconds())
	}()

	if e.mode == ModePaper {
		return e.fillPaper(order), nil
	}

	return e.fillLive(ctx, order)
}

func (e *Executor) fillPaper(order *types.Order) *Result {
	FillsTotal.WithLabelValues(ModePaper, "filled").Inc()

	e.logger.Info("paper-fill-executed",
		zap.String("order-hash", order.Hash.Hex()),
		zap.String("reactor", order.Reactor.Hex()),
		zap.Int("encoded-bytes", len(order.Encoded)))

	return &Result{
		OrderHash:  order.Hash,
		Mode:       ModePaper,
		ExecutedAt: time.Now(),
	}
}

func (e *Executor) fillLive(ctx context.Context, order *types.Order) (*Result, error) {
	submitCtx, cancel := context.WithTimeout(ctx, e.submitTimeout)
	defer cancel()

	e.logger.Info("submitting-fill",
		zap.String("order-hash", order.Hash.Hex()),
		zap.String("reactor", order.Reactor.Hex()),
		zap.Duration("timeout", e.submitTimeout))

	receipt, err := e.submitter.Submit(submitCtx, order.Encoded, order.Signature)
	if err != nil {
		fillErr := newFillError(order.Hash, err)

		outcome := "failed"
		if fillErr.Unresolved {
			outcome = "unresolved"
		}
		FillsTotal.WithLabelValues(ModeLive, outcome).Inc()

		e.logger.Error("fill-failed",
			zap.String("order-hash", order.Hash.Hex()),
			zap.String("tx-hash", fillErr.TxHash),
			zap.Bool("unresolved", fillErr.Unresolved),
			zap.Error(err))

		e.notify(notify.EventFillFailed, "Fill failed",
			fmt.Sprintf("- Order: %s\n- Error: %v", order.Hash.Hex(), fillErr))

		return nil, fillErr
	}

	FillsTotal.WithLabelValues(ModeLive, "filled").Inc()

	e.logger.Info("fill-confirmed",
		zap.String("order-hash", order.Hash.Hex()),
		zap.String("tx-hash", receipt.TxHash.Hex()),
		zap.Uint64("block", receipt.BlockNumber),
		zap.Uint64("gas-used", receipt.GasUsed))

	e.notify(notify.EventFillSucceeded, "Order filled",
		fmt.Sprintf("- Order: %s\n- Tx: %s\n- Block: %d", order.Hash.Hex(), receipt.TxHash.Hex(), receipt.BlockNumber))

	return &Result{
		OrderHash:  order.Hash,
		Mode:       ModeLive,
		Receipt:    receipt,
		ExecutedAt: time.Now(),
	}, nil
}

func (e *Executor) notify(event notify.Event, title, body string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(event, title, body)
}

// newFillError classifies a submission error. A timeout or a broadcast
// transaction without a receipt leaves the outcome unknown.
func newFillError(orderHash common.Hash, err error) *types.FillError {
	fillErr := &types.FillError{
		OrderHash: orderHash.Hex(),
		Err:       err,
	}

	var txErr *settlement.TxError
	if errors.As(err, &txErr) {
		fillErr.TxHash = txErr.TxHash.Hex()
		fillErr.Unresolved = !errors.Is(err, types.ErrTxReverted)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		fillErr.Unresolved = true
	}

	return fillErr
}
