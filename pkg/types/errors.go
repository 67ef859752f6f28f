package types

import (
	"errors"
	"fmt"
)

// ErrTxReverted is returned when a confirmed transaction has a failed status.
var ErrTxReverted = errors.New("transaction reverted")

// FetchError is a transient failure talking to an external source
// (order source, price feed or balance read). The cycle is aborted.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a malformed order payload.
type ParseError struct {
	OrderHash string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse order %s: %v", e.OrderHash, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FillError reports a failed or unresolved settlement submission.
// Unresolved is set when the outcome is unknown (e.g. confirmation timed out)
// and an operator must check the chain.
type FillError struct {
	OrderHash  string
	TxHash     string
	Unresolved bool
	Err        error
}

func (e *FillError) Error() string {
	state := "failed"
	if e.Unresolved {
		state = "unresolved"
	}

	if e.TxHash != "" {
		return fmt.Sprintf("fill %s for order %s (tx %s): %v", state, e.OrderHash, e.TxHash, e.Err)
	}

	return fmt.Sprintf("fill %s for order %s: %v", state, e.OrderHash, e.Err)
}

func (e *FillError) Unwrap() error {
	return e.Err
}

// ConfigError reports a missing or invalid setting. It is fatal at startup.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s", e.Key, e.Message)
}
