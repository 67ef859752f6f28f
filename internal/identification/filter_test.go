package identification

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/internal/testutil"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// during is a wall-clock time inside the fixture decay window.
var during = time.Unix(int64(testutil.DecayStart+50), 0)

func newTestFilter(t *testing.T, ignore ...common.Hash) (*Filter, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)

	return New(&Config{
		ChainID:      42161,
		InputTokens:  types.TokenList{testutil.WETH, testutil.WBTC},
		OutputTokens: types.TokenList{testutil.USDC, testutil.USDT},
		IgnoreHashes: ignore,
		Logger:       zap.New(core),
	}), logs
}

func TestIdentify_PassThrough(t *testing.T) {
	f, _ := newTestFilter(t)
	state := NewState()

	res := f.Identify([]types.RawOrder{testutil.CreateTestRawOrder(testutil.OrderHash(1), 10)}, state, during)

	require.True(t, res.Passed())
	assert.Equal(t, "WETH", res.Candidate.InputToken.Symbol)
	assert.Equal(t, "USDC", res.Candidate.OutputToken.Symbol)
	assert.Equal(t, common.Hash{}, state.LastSkippedHash)
}

func TestIdentify_PicksNewest(t *testing.T) {
	f, _ := newTestFilter(t)

	res := f.Identify([]types.RawOrder{
		testutil.CreateTestRawOrder(testutil.OrderHash(1), 10),
		testutil.CreateTestRawOrder(testutil.OrderHash(2), 20),
	}, NewState(), during)

	require.True(t, res.Passed())
	assert.Equal(t, common.HexToHash(testutil.OrderHash(2)), res.Candidate.Order.Hash)
}

func TestIdentify_Empty(t *testing.T) {
	f, logs := newTestFilter(t)
	state := NewState()
	state.MarkSkipped(common.HexToHash(testutil.OrderHash(5)))

	base := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	for i := 0; i < 5; i++ {
		res := f.Identify(nil, state, base.Add(time.Duration(i)*time.Second))
		assert.Equal(t, ReasonNoOrders, res.Reason)
	}
	f.Identify(nil, state, base.Add(time.Minute))

	assert.Equal(t, 2, logs.FilterMessage("no-open-orders").Len())
	assert.Equal(t, common.HexToHash(testutil.OrderHash(5)), state.LastSkippedHash)
}

func TestIdentify_IgnoreSetPrecedence(t *testing.T) {
	hash := common.HexToHash(testutil.OrderHash(1))
	f, _ := newTestFilter(t, hash)

	// Perfectly valid otherwise.
	res := f.Identify([]types.RawOrder{testutil.CreateTestRawOrder(testutil.OrderHash(1), 10)}, NewState(), during)

	assert.False(t, res.Passed())
	assert.Equal(t, ReasonIgnored, res.Reason)
}

func TestIdentify_AlreadyFilled(t *testing.T) {
	f, _ := newTestFilter(t)
	state := NewState()
	state.MarkFilled(common.HexToHash(testutil.OrderHash(1)))

	res := f.Identify([]types.RawOrder{testutil.CreateTestRawOrder(testutil.OrderHash(1), 10)}, state, during)

	assert.Equal(t, ReasonAlreadyFilled, res.Reason)
}

func TestIdentify_SkipMemory(t *testing.T) {
	f, logs := newTestFilter(t)
	state := NewState()
	raw := []types.RawOrder{testutil.CreateTestRawOrder(testutil.OrderHash(1), 10,
		testutil.WithInput(testutil.USDT.Address, big.NewInt(1), big.NewInt(1)))}

	first := f.Identify(raw, state, during)
	assert.Equal(t, ReasonInputNotTargeted, first.Reason)
	assert.Equal(t, common.HexToHash(testutil.OrderHash(1)), state.LastSkippedHash)

	second := f.Identify(raw, state, during)
	assert.Equal(t, ReasonAlreadySkipped, second.Reason)

	assert.Equal(t, 1, logs.FilterMessage("order-rejected").FilterLevelExact(zap.InfoLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("order-rejected").FilterLevelExact(zap.DebugLevel).Len())

	// A new hash replaces the single slot.
	third := f.Identify([]types.RawOrder{testutil.CreateTestRawOrder(testutil.OrderHash(2), 20)}, state, during)
	assert.True(t, third.Passed())
}

func TestIdentify_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		raw    func() types.RawOrder
		now    time.Time
		reason Reason
	}{
		{
			name: "wrong-type",
			raw: func() types.RawOrder {
				r := testutil.CreateTestRawOrder(testutil.OrderHash(1), 1)
				r.Type = "Dutch"
				return r
			},
			reason: ReasonUnsupportedKind,
		},
		{
			name: "not-open",
			raw: func() types.RawOrder {
				r := testutil.CreateTestRawOrder(testutil.OrderHash(1), 1)
				r.OrderStatus = types.OrderStatusFilled
				return r
			},
			reason: ReasonUnsupportedKind,
		},
		{
			name: "malformed",
			raw: func() types.RawOrder {
				r := testutil.CreateTestRawOrder(testutil.OrderHash(1), 1)
				r.EncodedOrder = "0xdeadbeef"
				return r
			},
			reason: ReasonMalformed,
		},
		{
			name: "unknown-reactor",
			raw: func() types.RawOrder {
				return testutil.CreateTestRawOrder(testutil.OrderHash(1), 1,
					testutil.WithReactor(common.HexToAddress("0xbad")))
			},
			reason: ReasonUnknownReactor,
		},
		{
			name: "mixed-outputs",
			raw: func() types.RawOrder {
				return testutil.CreateTestRawOrder(testutil.OrderHash(1), 1, testutil.WithOutputs(
					testutil.Output(testutil.USDC.Address, 100, 90),
					testutil.Output(testutil.USDT.Address, 1, 1),
				))
			},
			reason: ReasonMixedOutputs,
		},
		{
			name: "output-not-targeted",
			raw: func() types.RawOrder {
				return testutil.CreateTestRawOrder(testutil.OrderHash(1), 1, testutil.WithOutputs(
					testutil.Output(testutil.WETH.Address, 100, 90),
				))
			},
			reason: ReasonOutputNotTargeted,
		},
		{
			name:   "not-started",
			raw:    func() types.RawOrder { return testutil.CreateTestRawOrder(testutil.OrderHash(1), 1) },
			now:    time.Unix(int64(testutil.DecayStart-1), 0),
			reason: ReasonNotStarted,
		},
		{
			name:   "decay-ended",
			raw:    func() types.RawOrder { return testutil.CreateTestRawOrder(testutil.OrderHash(1), 1) },
			now:    time.Unix(int64(testutil.DecayStart+101), 0),
			reason: ReasonExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestFilter(t)
			state := NewState()

			now := tt.now
			if now.IsZero() {
				now = during
			}

			res := f.Identify([]types.RawOrder{tt.raw()}, state, now)

			assert.False(t, res.Passed())
			assert.Equal(t, tt.reason, res.Reason)
			assert.NotEmpty(t, res.Message)
			assert.Equal(t, common.HexToHash(testutil.OrderHash(1)), state.LastSkippedHash)
		})
	}
}

func TestIdentify_WindowEdgesInclusive(t *testing.T) {
	f, _ := newTestFilter(t)

	for _, ts := range []uint64{testutil.DecayStart, testutil.DecayStart + 100} {
		res := f.Identify([]types.RawOrder{testutil.CreateTestRawOrder(testutil.OrderHash(1), 1)},
			NewState(), time.Unix(int64(ts), 0))
		assert.True(t, res.Passed(), "timestamp %d", ts)
	}
}

func TestParseIgnoreHashes(t *testing.T) {
	hashes, err := ParseIgnoreHashes(testutil.OrderHash(1) + ", " + testutil.OrderHash(2) + ",")
	require.NoError(t, err)
	assert.Len(t, hashes, 2)

	hashes, err = ParseIgnoreHashes("")
	require.NoError(t, err)
	assert.Empty(t, hashes)

	_, err = ParseIgnoreHashes("0x1234")
	assert.Error(t, err)
}
