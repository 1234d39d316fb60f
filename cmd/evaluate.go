package cmd

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/evaluation"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure recognition quality on the gallery",
	Long: `Use every gallery entry as a query against the gallery and report accuracy,
precision, recall, F1, distance statistics, a threshold sweep and an accuracy
curve. The text report and chart data files are written to RESULTS_DIR.

By default each query's own entry stays in the candidate set (self-comparison).
Use --leave-one-out to exclude it, which measures generalization instead.

Examples:
  face-attendance evaluate
  face-attendance evaluate --leave-one-out --output ./loo_results`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().Bool("leave-one-out", false, "Exclude each query's own entry from the candidates")
	evaluateCmd.Flags().Float64("threshold", constants.DefaultDistanceThreshold, "Operating threshold (overrides MATCH_THRESHOLD)")
	evaluateCmd.Flags().String("output", "", "Results directory (overrides RESULTS_DIR)")
	evaluateCmd.Flags().Int("concurrency", runtime.NumCPU(), "Number of parallel queries")
	evaluateCmd.Flags().Bool("no-files", false, "Print the report without writing result files")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	matcher, closeGallery, err := loadMatcher(cmd.Context(), cfg)
	defer closeGallery()
	if err != nil {
		return err
	}

	mode := evaluation.SelfComparison
	if cfg.Evaluation.LeaveOneOut || mustGetBool(cmd, "leave-one-out") {
		mode = evaluation.LeaveOneOut
	}

	g := matcher.Gallery()
	fmt.Printf("Evaluating %d entries (%d identities, mode %s)\n", g.Len(), len(g.Identities()), mode)

	result, err := evaluation.Evaluate(g, evaluation.Options{
		Mode:            mode,
		Threshold:       thresholdFlag(cmd, cfg.Matching.Threshold),
		SweepThresholds: cfg.Evaluation.SweepThresholds,
		CurveThresholds: cfg.Evaluation.CurveThresholds(),
		Metric:          matcher.Metric(),
		Concurrency:     mustGetInt(cmd, "concurrency"),
		Progress:        os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	generatedAt := time.Now()
	fmt.Println()
	if err := evaluation.WriteText(os.Stdout, result, generatedAt); err != nil {
		return err
	}

	if mustGetBool(cmd, "no-files") {
		return nil
	}

	dir := mustGetString(cmd, "output")
	if dir == "" {
		dir = cfg.Paths.ResultsDir
	}
	written, err := evaluation.WriteReport(dir, result, generatedAt)
	if err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	fmt.Printf("\nResults written to %s:\n", dir)
	for _, path := range written {
		fmt.Printf("  %s\n", path)
	}
	return nil
}
