package testutil

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/pkg/types"
)

// MockSubmitter simulates settlement submissions for testing.
type MockSubmitter struct {
	mu         sync.Mutex
	calls      []MockSubmission
	shouldFail bool
	delay      time.Duration
}

// MockSubmission records a submitted order for verification.
type MockSubmission struct {
	Encoded   []byte
	Signature []byte
}

// NewMockSubmitter creates a mock submitter that succeeds.
func NewMockSubmitter() *MockSubmitter {
	return &MockSubmitter{}
}

// Submit records the submission and returns a confirmed receipt.
// It blocks for the configured delay or until ctx is done.
func (m *MockSubmitter) Submit(ctx context.Context, encoded []byte, sig []byte) (*types.Receipt, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockSubmission{Encoded: encoded, Signature: sig})
	delay := m.delay
	fail := m.shouldFail
	n := len(m.calls)
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if fail {
		return nil, ErrMockSubmit
	}

	return &types.Receipt{
		TxHash:      common.BigToHash(big.NewInt(int64(n))),
		BlockNumber: uint64(100 + n),
		GasUsed:     210_000,
	}, nil
}

// SetShouldFail configures the mock to fail submissions.
func (m *MockSubmitter) SetShouldFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = fail
}

// SetDelay configures how long a submission takes.
func (m *MockSubmitter) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns all recorded submissions.
func (m *MockSubmitter) Calls() []MockSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]MockSubmission, len(m.calls))
	copy(result, m.calls)
	return result
}
