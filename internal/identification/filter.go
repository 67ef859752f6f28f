// Package identification selects at most one actionable order per polling cycle.
package identification

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/internal/orders"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
	"go.uber.org/zap"
)

// Reason classifies why an order was rejected.
type Reason string

const (
	ReasonNoOrders          Reason = "no-orders"
	ReasonIgnored           Reason = "ignored"
	ReasonAlreadyFilled     Reason = "already-filled"
	ReasonAlreadySkipped    Reason = "already-skipped"
	ReasonUnsupportedKind   Reason = "unsupported-kind"
	ReasonMalformed         Reason = "malformed"
	ReasonUnknownReactor    Reason = "unknown-reactor"
	ReasonMixedOutputs      Reason = "mixed-outputs"
	ReasonInputNotTargeted  Reason = "input-not-targeted"
	ReasonOutputNotTargeted Reason = "output-not-targeted"
	ReasonNotStarted        Reason = "not-started"
	ReasonExpired           Reason = "expired"
)

// Candidate is an order that passed identification, with its tokens resolved
// against the allow-lists.
type Candidate struct {
	Order       *types.Order
	InputToken  types.Token
	OutputToken types.Token
}

// Result is the outcome of Identify. Candidate is nil on rejection.
type Result struct {
	Candidate *Candidate
	OrderHash common.Hash
	Reason    Reason
	Message   string
	// Err is set when the order payload could not be parsed.
	Err error
}

// Passed reports whether the result carries a candidate.
func (r *Result) Passed() bool {
	return r.Candidate != nil
}

// Config holds filter configuration.
type Config struct {
	ChainID      int64
	InputTokens  types.TokenList
	OutputTokens types.TokenList
	IgnoreHashes []common.Hash
	Logger       *zap.Logger
}

// Filter applies the identification checks. It holds read-only configuration;
// all mutable memory lives in the State passed to Identify.
type Filter struct {
	chainID      int64
	reactor      common.Address
	knownReactor bool
	inputTokens  types.TokenList
	outputTokens types.TokenList
	ignore       map[common.Hash]struct{}
	logger       *zap.Logger
}

// New creates a new identification filter.
func New(cfg *Config) *Filter {
	ignore := make(map[common.Hash]struct{}, len(cfg.IgnoreHashes))
	for _, h := range cfg.IgnoreHashes {
		ignore[h] = struct{}{}
	}

	reactor, ok := uniswapx.ReactorAddress(cfg.ChainID)

	return &Filter{
		chainID:      cfg.ChainID,
		reactor:      reactor,
		knownReactor: ok,
		inputTokens:  cfg.InputTokens,
		outputTokens: cfg.OutputTokens,
		ignore:       ignore,
		logger:       cfg.Logger,
	}
}

// Identify picks the newest order from raw and runs it through the checks in
// order. Every rejection of a concrete order records it in state as skipped.
func (f *Filter) Identify(raw []types.RawOrder, state *State, now time.Time) *Result {
	if len(raw) == 0 {
		if state.shouldLogEmpty(now) {
			f.logger.Info("no-open-orders")
		}
		RejectionsTotal.WithLabelValues(string(ReasonNoOrders)).Inc()
		return &Result{Reason: ReasonNoOrders, Message: "order source returned no open orders"}
	}

	newest := &raw[0]
	for i := 1; i < len(raw); i++ {
		if raw[i].CreatedAt > newest.CreatedAt {
			newest = &raw[i]
		}
	}

	hash := common.HexToHash(newest.OrderHash)
	repeat := hash == state.LastSkippedHash

	res := f.check(newest, hash, state, now)
	if res.Passed() {
		f.logger.Info("order-identified",
			zap.String("order-hash", hash.Hex()),
			zap.String("input-token", res.Candidate.InputToken.Symbol),
			zap.String("output-token", res.Candidate.OutputToken.Symbol),
			zap.Uint64("decay-end", res.Candidate.Order.DecayEndTime))
		return res
	}

	state.MarkSkipped(hash)
	RejectionsTotal.WithLabelValues(string(res.Reason)).Inc()

	switch {
	case res.Err != nil:
		f.logger.Error("order-malformed",
			zap.String("order-hash", newest.OrderHash),
			zap.Error(res.Err))
	case repeat:
		f.logger.Debug("order-rejected",
			zap.String("order-hash", hash.Hex()),
			zap.String("reason", string(res.Reason)))
	default:
		f.logger.Info("order-rejected",
			zap.String("order-hash", hash.Hex()),
			zap.String("reason", string(res.Reason)),
			zap.String("detail", res.Message))
	}

	return res
}

func (f *Filter) check(raw *types.RawOrder, hash common.Hash, state *State, now time.Time) *Result {
	reject := func(reason Reason, format string, args ...any) *Result {
		return &Result{OrderHash: hash, Reason: reason, Message: fmt.Sprintf(format, args...)}
	}

	if _, ok := f.ignore[hash]; ok {
		return reject(ReasonIgnored, "order %s is in the ignore set", hash.Hex())
	}

	if hash == state.LastFilledHash {
		return reject(ReasonAlreadyFilled, "order %s was already submitted", hash.Hex())
	}

	if hash == state.LastSkippedHash {
		return reject(ReasonAlreadySkipped, "order %s was already rejected", hash.Hex())
	}

	if raw.Type != types.OrderTypeDutchV2 || raw.OrderStatus != types.OrderStatusOpen {
		return reject(ReasonUnsupportedKind, "order kind %s with status %s is not supported", raw.Type, raw.OrderStatus)
	}

	if raw.ChainID != f.chainID {
		return reject(ReasonUnsupportedKind, "order chain %d does not match %d", raw.ChainID, f.chainID)
	}

	order, err := orders.ParseOrder(raw)
	if err != nil {
		res := reject(ReasonMalformed, "%v", err)
		res.Err = err
		return res
	}

	if f.knownReactor && order.Reactor != f.reactor {
		return reject(ReasonUnknownReactor, "reactor %s is not the %d reactor %s",
			order.Reactor.Hex(), f.chainID, f.reactor.Hex())
	}

	outToken := order.OutputToken()
	for i := range order.Outputs {
		if order.Outputs[i].Token != outToken {
			return reject(ReasonMixedOutputs, "output %d token %s differs from %s",
				i, order.Outputs[i].Token.Hex(), outToken.Hex())
		}
	}

	inputToken, ok := f.inputTokens.Find(order.Input.Token)
	if !ok {
		return reject(ReasonInputNotTargeted, "input token %s is not in [%s]",
			order.Input.Token.Hex(), f.inputTokens.Symbols())
	}

	outputToken, ok := f.outputTokens.Find(outToken)
	if !ok {
		return reject(ReasonOutputNotTargeted, "output token %s is not in [%s]",
			outToken.Hex(), f.outputTokens.Symbols())
	}

	ts := uint64(now.Unix())
	if ts < order.DecayStartTime {
		return reject(ReasonNotStarted, "decay starts at %s", formatUnix(order.DecayStartTime))
	}

	if ts > order.DecayEndTime || ts > order.Deadline {
		return reject(ReasonExpired, "decay ended at %s, deadline %s",
			formatUnix(order.DecayEndTime), formatUnix(order.Deadline))
	}

	return &Result{
		OrderHash: hash,
		Candidate: &Candidate{
			Order:       order,
			InputToken:  inputToken,
			OutputToken: outputToken,
		},
	}
}

// ParseIgnoreHashes parses a comma-separated list of order hashes.
func ParseIgnoreHashes(list string) ([]common.Hash, error) {
	var hashes []common.Hash
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, "0x") || len(s) != 66 {
			return nil, fmt.Errorf("invalid order hash %q", s)
		}
		hashes = append(hashes, common.HexToHash(s))
	}
	return hashes, nil
}

func formatUnix(ts uint64) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}
