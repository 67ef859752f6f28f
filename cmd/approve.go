package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/mselser95/dutch-filler/pkg/settlement"
	"github.com/mselser95/dutch-filler/pkg/types"
	"github.com/mselser95/dutch-filler/pkg/uniswapx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve the reactor to spend your output tokens",
	Long: `Approve the UniswapX reactor of CHAIN_ID to transfer OUTPUT_TOKENS from the
filler account. This is a one-time on-chain transaction per token, required
before live fills can settle.

Approves unlimited spending (max uint256) by default. Use --token to approve a
single token.

With --router, INPUT_TOKENS are approved to the Uniswap V3 SwapRouter instead.
This is needed once before REBALANCE_ENABLED can swap fill proceeds back.`,
	Args: cobra.NoArgs,
	RunE: runApprove,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	approvalAmount string
	approveToken   string
	approveRPC     string
	approveRouter  bool
)

const unlimitedApproval = "unlimited"

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().StringVarP(&approvalAmount, "amount", "a", unlimitedApproval, "Approval amount (unlimited, or whole token units)")
	approveCmd.Flags().StringVarP(&approveToken, "token", "t", "", "Token symbol to approve (default all tokens of the target list)")
	approveCmd.Flags().StringVarP(&approveRPC, "rpc", "r", "", "RPC endpoint (default RPC_URL)")
	approveCmd.Flags().BoolVar(&approveRouter, "router", false, "Approve INPUT_TOKENS to the swap router used for rebalancing")
}

func runApprove(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadCLIConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	key, err := signerKey(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	session, err := openChainSession(ctx, cfg, approveRPC, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	client, err := settlement.New(&settlement.Config{
		Backend:    session.eth,
		PrivateKey: key,
		ChainID:    cfg.ChainID,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create settlement client: %w", err)
	}

	target, err := approvalTarget(cfg.ChainID, client.Reactor(), session.inputTokens, session.outputTokens, approveRouter)
	if err != nil {
		return err
	}

	tokens, err := selectTokens(target.tokens, approveToken)
	if err != nil {
		return err
	}

	fmt.Printf("Filler:  %s\n", client.Address().Hex())
	fmt.Printf("%s %s\n\n", target.label, target.spender.Hex())

	for _, token := range tokens {
		amount, err := parseApproveAmount(approvalAmount, token)
		if err != nil {
			return err
		}

		current, err := session.wallet.Allowance(ctx, token.Address, client.Address(), target.spender)
		if err != nil {
			return fmt.Errorf("read %s allowance: %w", token.Symbol, err)
		}

		if current.Cmp(amount) >= 0 {
			fmt.Printf("%s: allowance %s already covers the request, skipping\n", token.Symbol, formatAllowance(token, current))
			continue
		}

		data, err := session.wallet.PackApprove(target.spender, amount)
		if err != nil {
			return fmt.Errorf("pack %s approve: %w", token.Symbol, err)
		}

		fmt.Printf("%s: approving %s...\n", token.Symbol, formatAllowance(token, amount))
		receipt, err := client.Approve(ctx, token.Address, data)
		if err != nil {
			return fmt.Errorf("approve %s: %w", token.Symbol, err)
		}

		fmt.Printf("%s: confirmed in block %d (tx %s, gas %d)\n",
			token.Symbol, receipt.BlockNumber, receipt.TxHash.Hex(), receipt.GasUsed)
	}

	return nil
}

type approval struct {
	label   string
	spender common.Address
	tokens  types.TokenList
}

// approvalTarget picks the spender and token list: output tokens for the
// reactor, or input tokens for the swap router.
func approvalTarget(chainID int64, reactor common.Address, inputs, outputs types.TokenList, router bool) (*approval, error) {
	if !router {
		return &approval{label: "Reactor:", spender: reactor, tokens: outputs}, nil
	}

	swapRouter, ok := uniswapx.SwapRouterAddress(chainID)
	if !ok {
		return nil, fmt.Errorf("no swap router known for chain %d", chainID)
	}
	return &approval{label: "Router: ", spender: swapRouter, tokens: inputs}, nil
}

// selectTokens returns the token named symbol, or all tokens when symbol is empty.
func selectTokens(tokens types.TokenList, symbol string) (types.TokenList, error) {
	if symbol == "" {
		return tokens, nil
	}

	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return types.TokenList{t}, nil
		}
	}
	return nil, fmt.Errorf("token %q is not in the approval list (%s)", symbol, tokens.Symbols())
}

// parseApproveAmount converts "unlimited" or a whole-token amount into base units.
func parseApproveAmount(amount string, token types.Token) (*big.Int, error) {
	if amount == unlimitedApproval {
		return new(big.Int).Set(math.MaxBig256), nil
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	if !value.IsPositive() {
		return nil, errors.New("amount must be positive")
	}

	units := token.FromDecimal(value)
	if units.Sign() == 0 {
		return nil, fmt.Errorf("amount %s is below %s precision", amount, token.Symbol)
	}
	return units, nil
}
