package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and edit the attendance ledger",
}

var ledgerSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the attendance summary of a day",
	Args:  cobra.NoArgs,
	RunE:  runLedgerSummary,
}

var ledgerMarkCmd = &cobra.Command{
	Use:   "mark <number> <name>",
	Short: "Mark a student present manually",
	Long: `Record a student as present without a camera sighting. Marking a student
who is already present for the day changes nothing.

Example:
  face-attendance ledger mark 1042 "Ali Veli"`,
	Args: cobra.ExactArgs(2),
	RunE: runLedgerMark,
}

var ledgerDaysCmd = &cobra.Command{
	Use:   "days",
	Short: "List days that have attendance records",
	Args:  cobra.NoArgs,
	RunE:  runLedgerDays,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerSummaryCmd, ledgerMarkCmd, ledgerDaysCmd)

	ledgerSummaryCmd.Flags().String("date", "", "Day as YYYY-MM-DD (default today)")
	ledgerMarkCmd.Flags().String("date", "", "Day as YYYY-MM-DD (default today)")
	ledgerDaysCmd.Flags().Int("limit", 30, "Maximum number of days to list")
}

func runLedgerSummary(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	store, closeStore, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	guard, err := newGuard(cfg, store, nil)
	if err != nil {
		return err
	}
	day, err := dayFlag(cmd, guard.Today)
	if err != nil {
		return err
	}

	summary, err := guard.Summary(ctx, day)
	if err != nil {
		return err
	}
	summary.Fprint(os.Stdout)
	return nil
}

func runLedgerMark(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	store, closeStore, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	guard, err := newGuard(cfg, store, nil)
	if err != nil {
		return err
	}
	day, err := dayFlag(cmd, guard.Today)
	if err != nil {
		return err
	}

	id, name := args[0], args[1]
	outcome, err := guard.MarkPresent(ctx, id, name, day)
	if err != nil {
		return fmt.Errorf("marking %s present: %w", id, err)
	}
	switch outcome {
	case ledger.Recorded:
		fmt.Printf("%s (%s) marked present for %s\n", name, id, day)
	case ledger.AlreadyMarked:
		fmt.Printf("%s (%s) was already marked present for %s\n", name, id, day)
	}
	return nil
}

func runLedgerDays(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	store, closeStore, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	days, err := store.Days(ctx, mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}
	if len(days) == 0 {
		fmt.Println("No attendance recorded yet")
		return nil
	}
	for _, day := range days {
		fmt.Printf("%s  %s\n", day, store.Location(day))
	}
	return nil
}
