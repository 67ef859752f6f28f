package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mselser95/dutch-filler/internal/orders"
	"github.com/mselser95/dutch-filler/internal/resolver"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listOrdersCmd = &cobra.Command{
	Use:   "list-orders",
	Short: "List open Dutch V2 orders from the order source",
	Long: `Fetch the newest open Dutch V2 orders for CHAIN_ID and show their
amounts resolved at the current time.

Token symbols are taken from INPUT_TOKENS and OUTPUT_TOKENS; unknown tokens are
shown by address with raw base-unit amounts.

Examples:
  # Show the 10 newest open orders
  go run . list-orders --limit 10`,
	Args: cobra.NoArgs,
	RunE: runListOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var listOrdersLimit int

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listOrdersCmd)
	listOrdersCmd.Flags().IntVarP(&listOrdersLimit, "limit", "l", 0, "Number of orders to fetch (default ORDER_FETCH_LIMIT)")
}

func runListOrders(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadCLIConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	limit := cfg.OrderFetchLimit
	if listOrdersLimit > 0 {
		limit = listOrdersLimit
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := orders.NewClient(cfg.OrderSourceURL, cfg.FetchTimeout, logger)
	raw, err := client.FetchOpenOrders(ctx, orders.OpenOrdersQuery(cfg.ChainID, limit))
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	if len(raw) == 0 {
		fmt.Println("No open orders found.")
		return nil
	}

	known := append(types.TokenList{}, cfg.InputTokens...)
	known = append(known, cfg.OutputTokens...)

	displayOrders(os.Stdout, raw, known, uint64(time.Now().Unix()))
	return nil
}

func displayOrders(w io.Writer, raw []types.RawOrder, known types.TokenList, now uint64) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HASH\tINPUT\tOUTPUT\tDECAY\tEXCLUSIVE")

	for i := range raw {
		order, err := orders.ParseOrder(&raw[i])
		if err != nil {
			fmt.Fprintf(tw, "%s\tunparseable: %v\t\t\t\n", shortHash(raw[i].OrderHash), err)
			continue
		}

		resolved := resolver.Resolve(order, now)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n",
			shortHash(order.Hash.Hex()),
			formatAmount(known, resolved.InputToken, resolved.InputAmount),
			formatAmount(known, order.OutputToken(), resolved.TotalOutput()),
			decayProgress(order, now),
			order.IsExclusive(),
		)
	}

	_ = tw.Flush()
}

func shortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:10] + "..."
}
