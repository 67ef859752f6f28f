package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "dutch-filler",
	Short: "UniswapX Dutch order filler",
	Long: `Filler agent for UniswapX Dutch V2 orders.

The agent polls the order source for the newest open order, resolves its
decaying amounts at the current time, compares the implied price with an
exchange reference bid and the filler's balance, and fills acceptable orders
through the reactor contract. Paper mode logs and journals fills without
sending transactions.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
