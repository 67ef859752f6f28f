// Package resolver computes the amounts of a decaying order at a point in time.
package resolver

import (
	"math/big"

	"github.com/mselser95/dutch-filler/pkg/types"
)

// Resolve returns the input and output amounts of the order at timestamp.
// It is pure: identical inputs always produce identical outputs.
func Resolve(order *types.Order, timestamp uint64) *types.ResolvedOrder {
	resolved := &types.ResolvedOrder{
		OrderHash:  order.Hash,
		Timestamp:  timestamp,
		InputToken: order.Input.Token,
		InputAmount: Decay(order.Input.StartAmount, order.Input.EndAmount,
			order.DecayStartTime, order.DecayEndTime, timestamp),
		Outputs: make([]types.ResolvedOutput, len(order.Outputs)),
	}

	for i := range order.Outputs {
		out := &order.Outputs[i]
		resolved.Outputs[i] = types.ResolvedOutput{
			Token:     out.Token,
			Amount:    Decay(out.StartAmount, out.EndAmount, order.DecayStartTime, order.DecayEndTime, timestamp),
			Recipient: out.Recipient,
		}
	}

	return resolved
}

// Decay linearly interpolates between start and end over [decayStart, decayEnd].
// The timestamp is clamped to the window and a zero-length window yields start.
// The decayed distance is rounded down, so the result never overshoots start
// in the direction of end.
func Decay(start, end *big.Int, decayStart, decayEnd, timestamp uint64) *big.Int {
	if decayEnd <= decayStart || timestamp <= decayStart {
		return new(big.Int).Set(start)
	}

	if timestamp >= decayEnd {
		return new(big.Int).Set(end)
	}

	elapsed := new(big.Int).SetUint64(timestamp - decayStart)
	duration := new(big.Int).SetUint64(decayEnd - decayStart)

	distance := new(big.Int).Sub(end, start)
	negative := distance.Sign() < 0
	distance.Abs(distance)

	step := distance.Mul(distance, elapsed)
	step.Quo(step, duration)

	if negative {
		return step.Sub(start, step)
	}
	return step.Add(start, step)
}
