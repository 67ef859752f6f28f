package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleJournal implements Journal by pretty-printing to console.
type ConsoleJournal struct {
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleJournal creates a new console journal writing to stdout.
func NewConsoleJournal(logger *zap.Logger) *ConsoleJournal {
	logger.Info("console-journal-initialized")
	return &ConsoleJournal{
		out:    os.Stdout,
		logger: logger,
	}
}

// Record pretty-prints a decision. Routine rejections are printed on one line.
func (c *ConsoleJournal) Record(ctx context.Context, d *Decision) error {
	if d.Outcome == OutcomeRejected {
		_, err := fmt.Fprintf(c.out, "%s rejected %s: %s\n",
			d.DecidedAt.Format("15:04:05"), d.OrderHash, d.Message)
		return err
	}

	fmt.Fprintln(c.out, "\n"+rule)
	fmt.Fprintf(c.out, "ORDER %s\n", outcomeTitle(d.Outcome))
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "Order:     %s\n", d.OrderHash)
	fmt.Fprintf(c.out, "Cycle:     %s\n", d.CycleID)
	fmt.Fprintf(c.out, "Time:      %s\n", d.DecidedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "  Pay:       %s %s\n", d.OutputAmount, d.OutputToken)
	fmt.Fprintf(c.out, "  Receive:   %s %s\n", d.InputAmount, d.InputToken)
	fmt.Fprintf(c.out, "  Price:     %s (reference %s)\n", d.ImpliedPrice, d.ReferencePrice)
	fmt.Fprintf(c.out, "  Balance:   %s %s\n", d.Balance, d.OutputToken)
	if d.TxHash != "" {
		fmt.Fprintf(c.out, "  Tx:        %s\n", d.TxHash)
	}
	if d.Outcome != OutcomeFilled && d.Outcome != OutcomePaperFill {
		fmt.Fprintf(c.out, "  Error:     %s\n", d.Message)
	}
	_, err := fmt.Fprintln(c.out, rule)

	return err
}

// Close is a no-op for console journal.
func (c *ConsoleJournal) Close() error {
	c.logger.Info("closing-console-journal")
	return nil
}

func outcomeTitle(o Outcome) string {
	switch o {
	case OutcomePaperFill:
		return "FILLED (PAPER)"
	case OutcomeFilled:
		return "FILLED"
	case OutcomeFillFailed:
		return "FILL FAILED"
	case OutcomeFillUnresolved:
		return "FILL UNRESOLVED - CHECK CHAIN"
	default:
		return string(o)
	}
}
