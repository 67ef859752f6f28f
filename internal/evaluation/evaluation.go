// Package evaluation decides whether a resolved order is worth filling.
package evaluation

import (
	"fmt"
	"math/big"

	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/shopspring/decimal"
)

// Reason classifies an evaluation outcome.
type Reason string

const (
	ReasonAccepted     Reason = "accepted"
	ReasonZeroInput    Reason = "zero-input"
	ReasonPrice        Reason = "price"
	ReasonBalance      Reason = "insufficient-balance"
	ReasonMaxFillLimit Reason = "max-fill-amount"
)

// Params are the explicit inputs of an evaluation. Balance and ReferencePrice
// are fetched by the caller.
type Params struct {
	Order    *types.Order
	Resolved *types.ResolvedOrder

	InputToken  types.Token
	OutputToken types.Token

	// Balance is the filler's balance of OutputToken in base units.
	Balance *big.Int

	// ReferencePrice is the external bid for one input token in output token units.
	ReferencePrice decimal.Decimal

	// MaxFillAmount caps the total output in whole OutputToken units. Zero disables the cap.
	MaxFillAmount decimal.Decimal
}

// Result is the outcome of an evaluation together with the figures it was based on.
type Result struct {
	Accepted bool
	Reason   Reason
	Message  string

	ImpliedPrice   decimal.Decimal
	ReferencePrice decimal.Decimal
	InputAmount    decimal.Decimal
	OutputAmount   decimal.Decimal
	Balance        decimal.Decimal
}

// Evaluate accepts the order when the implied price does not exceed the
// reference price and the balance covers the total resolved output.
// Equal prices are accepted.
func Evaluate(p *Params) *Result {
	totalOut := p.Resolved.TotalOutput()

	res := &Result{
		ReferencePrice: p.ReferencePrice,
		InputAmount:    p.InputToken.ToDecimal(p.Resolved.InputAmount),
		OutputAmount:   p.OutputToken.ToDecimal(totalOut),
		Balance:        p.OutputToken.ToDecimal(p.Balance),
	}

	if res.InputAmount.Sign() <= 0 {
		res.Reason = ReasonZeroInput
		res.Message = fmt.Sprintf("resolved input amount is %s %s", res.InputAmount, p.InputToken.Symbol)
		return res
	}

	// ImpliedPrice is rounded for display. The decision compares
	// output > reference * input, where Mul is exact.
	res.ImpliedPrice = res.OutputAmount.Div(res.InputAmount)

	if res.OutputAmount.GreaterThan(p.ReferencePrice.Mul(res.InputAmount)) {
		res.Reason = ReasonPrice
		res.Message = fmt.Sprintf("implied price %s %s/%s above reference %s (output %s, input %s)",
			res.ImpliedPrice, p.InputToken.Symbol, p.OutputToken.Symbol, p.ReferencePrice,
			res.OutputAmount, res.InputAmount)
		return res
	}

	if p.Balance == nil || p.Balance.Cmp(totalOut) < 0 {
		res.Reason = ReasonBalance
		res.Message = fmt.Sprintf("balance %s %s below required %s %s",
			res.Balance, p.OutputToken.Symbol, res.OutputAmount, p.OutputToken.Symbol)
		return res
	}

	if p.MaxFillAmount.Sign() > 0 && res.OutputAmount.GreaterThan(p.MaxFillAmount) {
		res.Reason = ReasonMaxFillLimit
		res.Message = fmt.Sprintf("output %s %s above max fill amount %s",
			res.OutputAmount, p.OutputToken.Symbol, p.MaxFillAmount)
		return res
	}

	res.Accepted = true
	res.Reason = ReasonAccepted
	res.Message = fmt.Sprintf("implied price %s within reference %s, balance %s covers %s %s",
		res.ImpliedPrice, p.ReferencePrice, res.Balance, res.OutputAmount, p.OutputToken.Symbol)

	return res
}

// Retryable reports whether a rejected order may pass a later evaluation
// without any change on the filler's side. Price rejections improve as the
// auction decays.
func (r *Result) Retryable() bool {
	return r.Reason == ReasonPrice
}
