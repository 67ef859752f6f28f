package cmd

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/wallet"
)

// formatAmount renders a base-unit amount in whole tokens when the token and
// its decimals are known.
func formatAmount(known types.TokenList, token common.Address, amount *big.Int) string {
	t, ok := known.Find(token)
	if !ok || t.Decimals == wallet.UnknownDecimals {
		label := token.Hex()
		if ok {
			label = t.Symbol
		}
		return fmt.Sprintf("%s %s (base units)", amount.String(), label)
	}
	return fmt.Sprintf("%s %s", t.ToDecimal(amount).String(), t.Symbol)
}

// decayProgress describes where now falls in the order's decay window.
func decayProgress(order *types.Order, now uint64) string {
	switch {
	case now >= order.Deadline:
		return "expired"
	case now <= order.DecayStartTime:
		return fmt.Sprintf("starts in %ds", order.DecayStartTime-now)
	case now >= order.DecayEndTime:
		return "fully decayed"
	}

	window := order.DecayEndTime - order.DecayStartTime
	elapsed := now - order.DecayStartTime
	return fmt.Sprintf("%d%%", elapsed*100/window)
}
