package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mselser95/dutch-filler/internal/resolver"
	"github.com/mselser95/dutch-filler/pkg/config"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var resolveCmd = &cobra.Command{
	Use:   "resolve <encoded-order>",
	Short: "Decode an encoded Dutch V2 order and resolve its amounts",
	Long: `Decode a hex encoded cosigned Dutch V2 order and print its input and
output amounts at a point in time. Works offline.

Examples:
  # Resolve at the current time
  go run . resolve 0x0000...

  # Resolve at a specific unix timestamp
  go run . resolve 0x0000... --at 1767225600`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	resolveAt      int64
	resolveChainID int64
	resolveTokens  string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().Int64Var(&resolveAt, "at", 0, "Unix timestamp to resolve at (default now)")
	resolveCmd.Flags().Int64Var(&resolveChainID, "chain-id", uniswapx.ChainIDMainnet, "Chain the order was signed for")
	resolveCmd.Flags().StringVar(&resolveTokens, "tokens", "", "Known tokens as SYMBOL:0xADDR:DECIMALS, comma separated")
}

func runResolve(cmd *cobra.Command, args []string) error {
	encoded, err := uniswapx.DecodeHex(args[0])
	if err != nil {
		return fmt.Errorf("decode order: %w", err)
	}

	order, err := encoded.ToOrder(resolveChainID)
	if err != nil {
		return fmt.Errorf("convert order: %w", err)
	}

	var known types.TokenList
	if resolveTokens != "" {
		known, err = config.ParseTokens(resolveTokens)
		if err != nil {
			return fmt.Errorf("parse tokens: %w", err)
		}
	}

	at := uint64(time.Now().Unix())
	if resolveAt > 0 {
		at = uint64(resolveAt)
	}

	printResolved(os.Stdout, order, known, at)
	return nil
}

func printResolved(w io.Writer, order *types.Order, known types.TokenList, at uint64) {
	resolved := resolver.Resolve(order, at)

	fmt.Fprintf(w, "Maker:     %s\n", order.Maker.Hex())
	fmt.Fprintf(w, "Nonce:     %s\n", order.Nonce)
	fmt.Fprintf(w, "Decay:     %d -> %d (%s)\n", order.DecayStartTime, order.DecayEndTime, decayProgress(order, at))
	fmt.Fprintf(w, "Deadline:  %d\n", order.Deadline)
	if order.IsExclusive() {
		fmt.Fprintf(w, "Exclusive: %s\n", order.Filler.Hex())
	}
	fmt.Fprintf(w, "Input:     %s\n", formatAmount(known, resolved.InputToken, resolved.InputAmount))
	for i, out := range resolved.Outputs {
		fmt.Fprintf(w, "Output %d:  %s to %s\n", i, formatAmount(known, out.Token, out.Amount), out.Recipient.Hex())
	}
}
