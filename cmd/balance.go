package cmd

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the filler's gas and output token balances",
	Long: `Display the filler account's holdings on CHAIN_ID:
- Native balance (for gas)
- Balance of every OUTPUT_TOKENS entry (what fills pay out)
- Allowance of every OUTPUT_TOKENS entry to the reactor

The account is the FILLER_PRIVATE_KEY address, or FILLER_ADDRESS when no key is set.`,
	Args: cobra.NoArgs,
	RunE: runBalance,
}

//nolint:gochecknoglobals // Cobra boilerplate
var balanceRPC string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balanceRPC, "rpc", "r", "", "RPC endpoint (default RPC_URL)")
}

// tokenHolding is the filler's position in one output token.
type tokenHolding struct {
	Token     types.Token
	Balance   *big.Int
	Allowance *big.Int
}

func runBalance(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadCLIConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	owner, err := fillerAddress(cfg)
	if err != nil {
		return err
	}

	reactor, ok := uniswapx.ReactorAddress(cfg.ChainID)
	if !ok {
		return fmt.Errorf("no reactor known for chain %d", cfg.ChainID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := openChainSession(ctx, cfg, balanceRPC, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	native, err := session.wallet.NativeBalance(ctx, owner)
	if err != nil {
		return fmt.Errorf("read native balance: %w", err)
	}

	holdings := make([]tokenHolding, 0, len(session.outputTokens))
	for _, token := range session.outputTokens {
		balance, err := session.wallet.BalanceOf(ctx, token.Address, owner)
		if err != nil {
			return fmt.Errorf("read %s balance: %w", token.Symbol, err)
		}

		allowance, err := session.wallet.Allowance(ctx, token.Address, owner, reactor)
		if err != nil {
			return fmt.Errorf("read %s allowance: %w", token.Symbol, err)
		}

		holdings = append(holdings, tokenHolding{Token: token, Balance: balance, Allowance: allowance})
	}

	fmt.Printf("Filler:  %s\n", owner.Hex())
	fmt.Printf("Reactor: %s\n", reactor.Hex())
	fmt.Printf("Gas:     %s ETH\n\n", decimal.NewFromBigInt(native, -18).StringFixed(6))
	displayHoldings(os.Stdout, holdings, cfg.MaxFillAmount)

	return nil
}

func displayHoldings(w io.Writer, holdings []tokenHolding, maxFill decimal.Decimal) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tBALANCE\tALLOWANCE\tNOTE")

	for _, h := range holdings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			h.Token.Symbol,
			h.Token.ToDecimal(h.Balance).String(),
			formatAllowance(h.Token, h.Allowance),
			holdingNote(h, maxFill),
		)
	}

	_ = tw.Flush()
}

func formatAllowance(token types.Token, allowance *big.Int) string {
	if allowance.Cmp(unlimitedAllowanceFloor) >= 0 {
		return "unlimited"
	}
	return token.ToDecimal(allowance).String()
}

func holdingNote(h tokenHolding, maxFill decimal.Decimal) string {
	if h.Allowance.Sign() == 0 {
		return "not approved"
	}

	if h.Allowance.Cmp(h.Balance) < 0 {
		return "allowance below balance"
	}

	if maxFill.IsPositive() && h.Token.ToDecimal(h.Balance).LessThan(maxFill) {
		return "balance below MAX_FILL_AMOUNT"
	}

	return ""
}

// unlimitedAllowanceFloor treats anything at or above 2^255 as an unlimited approval.
//
//nolint:gochecknoglobals // read-only constant
var unlimitedAllowanceFloor = new(big.Int).Lsh(common.Big1, 255)
