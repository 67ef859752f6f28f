// Package scheduler runs the filler pipeline on a fixed interval, one cycle at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/mselser95/dutch-filler/internal/evaluation"
	"github.com/mselser95/dutch-filler/internal/execution"
	"github.com/mselser95/dutch-filler/internal/identification"
	"github.com/mselser95/dutch-filler/internal/notify"
	"github.com/mselser95/dutch-filler/internal/orders"
	"github.com/mselser95/dutch-filler/internal/pricefeed"
	"github.com/mselser95/dutch-filler/internal/rebalance"
	"github.com/mselser95/dutch-filler/internal/resolver"
	"github.com/mselser95/dutch-filler/internal/storage"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultCallTimeout      = 5 * time.Second
	defaultRebalanceTimeout = 2 * time.Minute

	// MinInterval is the shortest accepted polling interval.
	MinInterval = 50 * time.Millisecond
)

// OrderSource lists open orders.
type OrderSource interface {
	FetchOpenOrders(ctx context.Context, q orders.Query) ([]types.RawOrder, error)
}

// PriceSource returns the top bid of an exchange pair.
type PriceSource interface {
	TopBid(ctx context.Context, pair string) (decimal.Decimal, error)
}

// BalanceReader returns an ERC20 balance.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error)
}

// Filler executes an accepted order.
type Filler interface {
	Fill(ctx context.Context, order *types.Order) (*execution.Result, error)
	Mode() string
}

// Rebalancer swaps the proceeds of a confirmed fill back into the output token.
type Rebalancer interface {
	Rebalance(ctx context.Context, req *rebalance.Request) (*rebalance.Swap, error)
}

// Config holds agent configuration.
type Config struct {
	Interval time.Duration
	Query    orders.Query

	Filter   *identification.Filter
	Orders   OrderSource
	Prices   PriceSource
	Balances BalanceReader
	Filler   Filler
	Journal  storage.Journal
	Notifier execution.Notifier

	// FillerAddress holds the output tokens supplied on fill.
	FillerAddress common.Address
	MaxFillAmount decimal.Decimal

	FetchTimeout   time.Duration
	PriceTimeout   time.Duration
	BalanceTimeout time.Duration

	// Rebalancer is optional. It runs after every confirmed live fill and
	// never changes the recorded fill outcome.
	Rebalancer       Rebalancer
	RebalanceTimeout time.Duration

	// Heartbeat, when set, is called after every cycle including failed ones.
	Heartbeat func(time.Time)

	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// Status is a snapshot of the agent for the status endpoint.
type Status struct {
	Mode            string    `json:"mode"`
	Cycles          uint64    `json:"cycles"`
	Fills           uint64    `json:"fills"`
	LastCycleID     string    `json:"last_cycle_id"`
	LastCycleAt     time.Time `json:"last_cycle_at"`
	LastOrderHash   string    `json:"last_order_hash,omitempty"`
	LastOutcome     string    `json:"last_outcome"`
	LastError       string    `json:"last_error,omitempty"`
	LastSkippedHash string    `json:"last_skipped_hash,omitempty"`
	LastFilledHash  string    `json:"last_filled_hash,omitempty"`
}

// Agent is the single worker that owns the identification state.
type Agent struct {
	cfg    Config
	state  *identification.State
	status atomic.Pointer[Status]
	logger *zap.Logger

	// lastPriceReject suppresses repeated logging while an auction decays
	// toward an acceptable price.
	lastPriceReject common.Hash
	cycles          uint64
	fills           uint64
}

// New creates a new agent.
func New(cfg *Config) (*Agent, error) {
	switch {
	case cfg.Filter == nil:
		return nil, errors.New("filter is required")
	case cfg.Orders == nil:
		return nil, errors.New("order source is required")
	case cfg.Prices == nil:
		return nil, errors.New("price source is required")
	case cfg.Balances == nil:
		return nil, errors.New("balance reader is required")
	case cfg.Filler == nil:
		return nil, errors.New("filler is required")
	case cfg.Journal == nil:
		return nil, errors.New("journal is required")
	case cfg.Interval < MinInterval:
		return nil, fmt.Errorf("interval %s below minimum %s", cfg.Interval, MinInterval)
	}

	c := *cfg
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultCallTimeout
	}
	if c.PriceTimeout <= 0 {
		c.PriceTimeout = defaultCallTimeout
	}
	if c.BalanceTimeout <= 0 {
		c.BalanceTimeout = defaultCallTimeout
	}
	if c.RebalanceTimeout <= 0 {
		c.RebalanceTimeout = defaultRebalanceTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	a := &Agent{
		cfg:    c,
		state:  identification.NewState(),
		logger: c.Logger,
	}
	a.status.Store(&Status{Mode: c.Filler.Mode(), LastOutcome: "idle"})

	return a, nil
}

// Status returns the latest status snapshot. Safe for concurrent use.
func (a *Agent) Status() Status {
	return *a.status.Load()
}

// Run executes cycles every interval until ctx is cancelled. Cycles never
// overlap; ticks that fire while a cycle runs are dropped.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("scheduler-starting",
		zap.Duration("interval", a.cfg.Interval),
		zap.String("mode", a.cfg.Filler.Mode()),
		zap.Int64("chain-id", a.cfg.Query.ChainID),
		zap.String("filler", a.cfg.FillerAddress.Hex()))

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.runSafe(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("scheduler-stopping", zap.Uint64("cycles", a.cycles))
			return ctx.Err()
		case <-ticker.C:
			a.runSafe(ctx)

			select {
			case <-ticker.C:
				CyclesSkippedTotal.Inc()
			default:
			}
		}
	}
}

// runSafe runs one cycle and keeps the loop alive on error or panic.
func (a *Agent) runSafe(ctx context.Context) {
	defer func() {
		if a.cfg.Heartbeat != nil {
			defer a.cfg.Heartbeat(time.Now())
		}
		if r := recover(); r != nil {
			CyclesTotal.WithLabelValues("panic").Inc()
			a.logger.Error("cycle-panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			a.updateStatus("", "panic", fmt.Errorf("panic: %v", r))
		}
	}()

	err := a.RunCycle(ctx)
	if err != nil && ctx.Err() == nil {
		a.logger.Error("cycle-failed", zap.Error(err))
	}
}

// RunCycle runs identification, evaluation and fill once. Fetch errors abort
// the cycle before any state is committed.
func (a *Agent) RunCycle(ctx context.Context) (err error) {
	start := time.Now()
	cycleID := uuid.New().String()
	a.cycles++

	outcome := "idle"
	orderHash := ""
	defer func() {
		CycleDurationSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			outcome = "failed"
		}
		CyclesTotal.WithLabelValues(outcome).Inc()
		a.updateStatus(cycleID, outcome, err)
		if orderHash != "" {
			a.setLastOrder(orderHash)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	raw, err := a.cfg.Orders.FetchOpenOrders(fetchCtx, a.cfg.Query)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	now := a.cfg.Now()

	ident := a.cfg.Filter.Identify(raw, a.state, now)
	if !ident.Passed() {
		if ident.Reason != identification.ReasonNoOrders {
			outcome = "rejected"
			orderHash = ident.OrderHash.Hex()
		}
		if isFirstRejection(ident.Reason) {
			d := storage.NewDecision(cycleID, ident.OrderHash.Hex(), storage.OutcomeRejected, now)
			d.Reason = string(ident.Reason)
			d.Message = ident.Message
			a.record(ctx, d)
		}
		return nil
	}

	cand := ident.Candidate
	order := cand.Order
	orderHash = order.Hash.Hex()

	resolved := resolver.Resolve(order, uint64(now.Unix()))

	pair := pricefeed.PairSymbol(cand.InputToken, cand.OutputToken)
	priceCtx, cancel := context.WithTimeout(ctx, a.cfg.PriceTimeout)
	ref, err := a.cfg.Prices.TopBid(priceCtx, pair)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch reference price %s: %w", pair, err)
	}

	balanceCtx, cancel := context.WithTimeout(ctx, a.cfg.BalanceTimeout)
	balance, err := a.cfg.Balances.BalanceOf(balanceCtx, cand.OutputToken.Address, a.cfg.FillerAddress)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch %s balance: %w", cand.OutputToken.Symbol, err)
	}

	ev := evaluation.Evaluate(&evaluation.Params{
		Order:          order,
		Resolved:       resolved,
		InputToken:     cand.InputToken,
		OutputToken:    cand.OutputToken,
		Balance:        balance,
		ReferencePrice: ref,
		MaxFillAmount:  a.cfg.MaxFillAmount,
	})
	EvaluationsTotal.WithLabelValues(string(ev.Reason)).Inc()
	if !ev.ImpliedPrice.IsZero() {
		ImpliedPrice.WithLabelValues(pair).Set(ev.ImpliedPrice.InexactFloat64())
	}

	fields := []zap.Field{
		zap.String("cycle-id", cycleID),
		zap.String("order-hash", orderHash),
		zap.String("pair", pair),
		zap.Stringer("input-amount", ev.InputAmount),
		zap.Stringer("output-amount", ev.OutputAmount),
		zap.Stringer("implied-price", ev.ImpliedPrice),
		zap.Stringer("reference-price", ev.ReferencePrice),
		zap.Stringer("balance", ev.Balance),
	}

	decision := storage.NewDecision(cycleID, orderHash, storage.OutcomeRejected, now)
	decision.Reason = string(ev.Reason)
	decision.Message = ev.Message
	decision.InputToken = cand.InputToken.Symbol
	decision.OutputToken = cand.OutputToken.Symbol
	decision.InputAmount = ev.InputAmount
	decision.OutputAmount = ev.OutputAmount
	decision.ImpliedPrice = ev.ImpliedPrice
	decision.ReferencePrice = ev.ReferencePrice
	decision.Balance = ev.Balance

	if !ev.Accepted {
		outcome = "rejected"
		a.reject(ctx, order.Hash, ev, decision, fields)
		return nil
	}

	a.lastPriceReject = common.Hash{}
	a.logger.Info("order-accepted", append(fields, zap.String("detail", ev.Message))...)
	a.notify(notify.EventOrderAccepted, "Order accepted",
		fmt.Sprintf("- Order: %s\n- Pair: %s\n- Output: %s %s\n- Implied: %s\n- Reference: %s",
			orderHash, pair, ev.OutputAmount, cand.OutputToken.Symbol, ev.ImpliedPrice, ev.ReferencePrice))

	// Marked before the attempt so that no outcome, a panic included, lets
	// the order be submitted again.
	a.state.MarkFilled(order.Hash)

	result, fillErr := a.cfg.Filler.Fill(ctx, order)

	decision.DecidedAt = a.cfg.Now()
	switch {
	case fillErr != nil:
		var fe *types.FillError
		decision.Outcome = storage.OutcomeFillFailed
		if errors.As(fillErr, &fe) {
			decision.TxHash = fe.TxHash
			if fe.Unresolved {
				decision.Outcome = storage.OutcomeFillUnresolved
			}
		}
		decision.Message = fillErr.Error()
		outcome = string(decision.Outcome)
	case result.Receipt != nil:
		decision.Outcome = storage.OutcomeFilled
		decision.TxHash = result.Receipt.TxHash.Hex()
		outcome = string(storage.OutcomeFilled)
		a.fills++
	default:
		decision.Outcome = storage.OutcomePaperFill
		outcome = string(storage.OutcomePaperFill)
		a.fills++
	}

	a.record(ctx, decision)

	if decision.Outcome == storage.OutcomeFilled && a.cfg.Rebalancer != nil {
		a.rebalance(ctx, result.Receipt, cand, ev.ReferencePrice, fields)
	}

	return nil
}

// rebalance swaps the input tokens received by a fill back into the output
// token. Failures are reported and leave the fill outcome untouched.
func (a *Agent) rebalance(
	ctx context.Context,
	receipt *types.Receipt,
	cand *identification.Candidate,
	ref decimal.Decimal,
	fields []zap.Field,
) {
	rebalanceCtx, cancel := context.WithTimeout(ctx, a.cfg.RebalanceTimeout)
	defer cancel()

	swap, err := a.cfg.Rebalancer.Rebalance(rebalanceCtx, &rebalance.Request{
		FillReceipt:    receipt,
		InputToken:     cand.InputToken,
		OutputToken:    cand.OutputToken,
		ReferencePrice: ref,
	})
	if err != nil {
		a.logger.Error("rebalance-failed", append(fields, zap.Error(err))...)
		a.notify(notify.EventRebalanceFailed, "Rebalance failed",
			fmt.Sprintf("- Fill tx: %s\n- %s -> %s\n- Error: %v",
				receipt.TxHash.Hex(), cand.InputToken.Symbol, cand.OutputToken.Symbol, err))
		return
	}

	a.logger.Info("rebalance-swapped", append(fields,
		zap.String("swap-tx", swap.Receipt.TxHash.Hex()),
		zap.Stringer("amount-in", cand.InputToken.ToDecimal(swap.AmountIn)),
		zap.Stringer("min-amount-out", cand.OutputToken.ToDecimal(swap.MinAmountOut)))...)
	a.notify(notify.EventRebalanced, "Rebalanced",
		fmt.Sprintf("- Swap tx: %s\n- In: %s %s\n- Min out: %s %s",
			swap.Receipt.TxHash.Hex(),
			cand.InputToken.ToDecimal(swap.AmountIn), cand.InputToken.Symbol,
			cand.OutputToken.ToDecimal(swap.MinAmountOut), cand.OutputToken.Symbol))
}

func (a *Agent) reject(ctx context.Context, hash common.Hash, ev *evaluation.Result, d *storage.Decision, fields []zap.Field) {
	fields = append(fields, zap.String("reason", string(ev.Reason)), zap.String("detail", ev.Message))

	if ev.Retryable() {
		// Price may become acceptable as the auction decays; keep evaluating.
		if hash == a.lastPriceReject {
			a.logger.Debug("order-rejected", fields...)
			return
		}
		a.lastPriceReject = hash
		a.logger.Info("order-rejected", fields...)
		a.record(ctx, d)
		return
	}

	a.state.MarkSkipped(hash)
	a.logger.Info("order-rejected", fields...)
	a.record(ctx, d)

	if ev.Reason == evaluation.ReasonBalance {
		a.notify(notify.EventInsufficientBalance, "Insufficient balance",
			fmt.Sprintf("- Order: %s\n- %s", hash.Hex(), ev.Message))
	}
}

func (a *Agent) record(ctx context.Context, d *storage.Decision) {
	err := a.cfg.Journal.Record(ctx, d)
	if err != nil {
		a.logger.Warn("journal-record-failed",
			zap.String("order-hash", d.OrderHash),
			zap.String("outcome", string(d.Outcome)),
			zap.Error(err))
	}
}

func (a *Agent) notify(event notify.Event, title, body string) {
	if a.cfg.Notifier == nil {
		return
	}
	a.cfg.Notifier.Notify(event, title, body)
}

func (a *Agent) updateStatus(cycleID, outcome string, err error) {
	prev := a.status.Load()
	next := &Status{
		Mode:            prev.Mode,
		Cycles:          a.cycles,
		Fills:           a.fills,
		LastCycleID:     cycleID,
		LastCycleAt:     a.cfg.Now(),
		LastOrderHash:   prev.LastOrderHash,
		LastOutcome:     outcome,
		LastSkippedHash: hashString(a.state.LastSkippedHash),
		LastFilledHash:  hashString(a.state.LastFilledHash),
	}
	if err != nil {
		next.LastError = err.Error()
	}
	a.status.Store(next)
}

func (a *Agent) setLastOrder(hash string) {
	s := *a.status.Load()
	s.LastOrderHash = hash
	a.status.Store(&s)
}

// isFirstRejection reports whether an identification rejection is new enough
// to journal. Repeats and empty polls are not recorded.
func isFirstRejection(r identification.Reason) bool {
	switch r {
	case identification.ReasonNoOrders, identification.ReasonAlreadySkipped, identification.ReasonAlreadyFilled:
		return false
	}
	return true
}

func hashString(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}
