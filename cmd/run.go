package cmd

import (
	"fmt"

	"github.com/mselser95/dutch-filler/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the filler agent",
	Long: `Starts the filler agent, which every POLL_INTERVAL will:
1. Fetch the newest open Dutch V2 orders from the order source
2. Drop ignored, repeated, unsupported or inactive orders
3. Resolve the order at the current time
4. Compare the implied price with the exchange top bid and check the balance
5. Fill the order (EXECUTION_MODE=live) or journal a paper fill

Cycles never overlap. Configuration is read from the environment and .env.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadCLIConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
