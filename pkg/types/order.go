package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrderStatus is the lifecycle status reported by the order source.
type OrderStatus string

const (
	OrderStatusOpen    OrderStatus = "open"
	OrderStatusFilled  OrderStatus = "filled"
	OrderStatusExpired OrderStatus = "expired"
)

// OrderType identifies the auction kind of a published order.
type OrderType string

// OrderTypeDutchV2 is the only order kind the filler acts on.
const OrderTypeDutchV2 OrderType = "Dutch_V2"

// DutchInput is the maker's leg. Its amount decays upward towards EndAmount.
type DutchInput struct {
	Token       common.Address
	StartAmount *big.Int
	EndAmount   *big.Int
}

// DutchOutput is a leg the filler must supply. Its amount decays downward towards EndAmount.
type DutchOutput struct {
	Token       common.Address
	StartAmount *big.Int
	EndAmount   *big.Int
	Recipient   common.Address
}

// Order is an immutable decaying order as decoded from the order source.
// Amounts are in token base units.
type Order struct {
	Hash     common.Hash
	ChainID  int64
	Maker    common.Address
	Filler   common.Address // zero address means any filler
	Reactor  common.Address
	Cosigner common.Address
	Nonce    *big.Int

	DecayStartTime uint64
	DecayEndTime   uint64
	Deadline       uint64

	Input   DutchInput
	Outputs []DutchOutput

	Status    OrderStatus
	Type      OrderType
	CreatedAt int64

	// Encoded is the opaque attestation payload submitted to the settlement contract.
	Encoded   []byte
	Signature []byte
}

// Validate checks the schedule and leg invariants of the order.
func (o *Order) Validate() error {
	if o.DecayStartTime > o.DecayEndTime {
		return fmt.Errorf("decay start %d after decay end %d", o.DecayStartTime, o.DecayEndTime)
	}

	if o.DecayEndTime > o.Deadline {
		return fmt.Errorf("decay end %d after deadline %d", o.DecayEndTime, o.Deadline)
	}

	if o.Input.StartAmount == nil || o.Input.EndAmount == nil {
		return fmt.Errorf("input amounts missing")
	}

	if o.Input.StartAmount.Sign() < 0 || o.Input.EndAmount.Sign() < 0 {
		return fmt.Errorf("input amounts must be non-negative")
	}

	if len(o.Outputs) == 0 {
		return fmt.Errorf("order has no outputs")
	}

	for i := range o.Outputs {
		out := &o.Outputs[i]
		if out.StartAmount == nil || out.EndAmount == nil {
			return fmt.Errorf("output %d amounts missing", i)
		}
		if out.StartAmount.Sign() < 0 || out.EndAmount.Sign() < 0 {
			return fmt.Errorf("output %d amounts must be non-negative", i)
		}
	}

	return nil
}

// IsExclusive reports whether only a specific filler may settle the order.
func (o *Order) IsExclusive() bool {
	return o.Filler != (common.Address{})
}

// OutputToken returns the token of the first output leg.
func (o *Order) OutputToken() common.Address {
	if len(o.Outputs) == 0 {
		return common.Address{}
	}
	return o.Outputs[0].Token
}

// ResolvedOutput is an output leg evaluated at a point in time.
type ResolvedOutput struct {
	Token     common.Address
	Amount    *big.Int
	Recipient common.Address
}

// ResolvedOrder holds the amounts of an order at a specific timestamp.
// It is derived on every evaluation and never persisted.
type ResolvedOrder struct {
	OrderHash   common.Hash
	Timestamp   uint64
	InputToken  common.Address
	InputAmount *big.Int
	Outputs     []ResolvedOutput
}

// TotalOutput sums every resolved output amount, fee outputs included.
func (r *ResolvedOrder) TotalOutput() *big.Int {
	total := new(big.Int)
	for i := range r.Outputs {
		total.Add(total, r.Outputs[i].Amount)
	}
	return total
}
