// Package storage journals every terminal decision of a filler cycle.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome is the terminal result of a cycle for one order.
type Outcome string

const (
	OutcomeRejected       Outcome = "rejected"
	OutcomePaperFill      Outcome = "paper-fill"
	OutcomeFilled         Outcome = "filled"
	OutcomeFillFailed     Outcome = "fill-failed"
	OutcomeFillUnresolved Outcome = "fill-unresolved"
)

// Decision is one journaled evaluation outcome with the figures behind it.
type Decision struct {
	ID        string
	CycleID   string
	OrderHash string
	Outcome   Outcome
	Reason    string
	Message   string

	InputToken     string
	OutputToken    string
	InputAmount    decimal.Decimal
	OutputAmount   decimal.Decimal
	ImpliedPrice   decimal.Decimal
	ReferencePrice decimal.Decimal
	Balance        decimal.Decimal

	TxHash    string
	DecidedAt time.Time
}

// NewDecision creates a decision with a fresh ID stamped at now.
func NewDecision(cycleID string, orderHash string, outcome Outcome, now time.Time) *Decision {
	return &Decision{
		ID:        uuid.New().String(),
		CycleID:   cycleID,
		OrderHash: orderHash,
		Outcome:   outcome,
		DecidedAt: now,
	}
}

// Journal is the interface for recording decisions.
type Journal interface {
	// Record stores a decision.
	Record(ctx context.Context, d *Decision) error

	// Close closes the journal.
	Close() error
}
