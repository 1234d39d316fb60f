package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/session"
)

var attendCmd = &cobra.Command{
	Use:   "attend",
	Short: "Run a live attendance session",
	Long: `Pull frames from a camera snapshot URL (CAPTURE_URL) or a directory of frames
(CAPTURE_DIR), recognize faces on every Nth frame and mark recognized students
present once per day.

Press Ctrl+C to stop. Send SIGUSR1 to print the current day's summary without
interrupting capture.

Examples:
  # Camera snapshot endpoint
  face-attendance attend --capture-url http://192.168.1.20/snapshot.jpg

  # Replay recorded frames and write the annotated view to a file
  face-attendance attend --capture-dir ./frames --snapshot ./live.jpg`,
	Args: cobra.NoArgs,
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)

	attendCmd.Flags().String("capture-url", "", "Snapshot URL of the camera (overrides CAPTURE_URL)")
	attendCmd.Flags().String("capture-dir", "", "Directory of frames to replay (overrides CAPTURE_DIR)")
	attendCmd.Flags().Bool("loop", false, "Restart from the first frame when --capture-dir is exhausted")
	attendCmd.Flags().String("snapshot", "", "Write the annotated frame to this JPEG file")
	attendCmd.Flags().Int("every", 0, "Process every Nth frame (overrides PROCESS_EVERY_N_FRAMES)")
	attendCmd.Flags().Float64("threshold", constants.DefaultDistanceThreshold, "Maximum distance for a recognized face (overrides MATCH_THRESHOLD)")
}

// openCaptureSource picks the snapshot URL when set, otherwise the frame directory.
func openCaptureSource(cmd *cobra.Command, cfg *config.Config) (capture.Source, error) {
	url := mustGetString(cmd, "capture-url")
	if url == "" {
		url = cfg.Capture.URL
	}
	dir := mustGetString(cmd, "capture-dir")
	if dir == "" {
		dir = cfg.Capture.Dir
	}

	switch {
	case url != "":
		fmt.Printf("Capturing snapshots from %s\n", url)
		return capture.NewHTTPSource(url, cfg.Capture.Interval), nil
	case dir != "":
		fmt.Printf("Replaying frames from %s\n", dir)
		return capture.NewDirSource(dir, mustGetBool(cmd, "loop"))
	default:
		return nil, fmt.Errorf("%w: set CAPTURE_URL or CAPTURE_DIR", capture.ErrUnavailable)
	}
}

func runAttend(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	matcher, closeGallery, err := loadMatcher(ctx, cfg)
	defer closeGallery()
	if err != nil {
		return err
	}

	store, closeStore, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	m, err := metrics.New(nil)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	m.SetGallerySize(matcher.Gallery().Len())

	guard, err := newGuard(cfg, store, m)
	if err != nil {
		return err
	}

	source, err := openCaptureSource(cmd, cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	every := cfg.Capture.ProcessEveryNFrames
	if n := mustGetInt(cmd, "every"); n > 0 {
		every = n
	}

	opts := []session.Option{
		session.WithMetrics(m),
		session.WithLogger(slog.Default()),
		session.WithSummaryOutput(os.Stdout),
		session.WithProcessEvery(every),
		session.WithScale(cfg.Capture.FrameScale),
		session.WithThreshold(thresholdFlag(cmd, cfg.Matching.Threshold)),
		session.WithUnknownDir(cfg.Paths.UnknownDir),
	}
	if path := mustGetString(cmd, "snapshot"); path != "" {
		opts = append(opts, session.WithRenderer(&session.SnapshotRenderer{Path: path}))
	}

	sess := session.New(source, embedder.NewClient(cfg.Embedding.URL), matcher, guard, opts...)

	summaries := make(chan struct{}, constants.SummaryChannelBuffer)
	stopSummaries := notifySummaryRequests(summaries)
	defer stopSummaries()

	fmt.Printf("Attendance session started (gallery: %d entries, every %d frames)\n", matcher.Gallery().Len(), every)
	fmt.Println("Press Ctrl+C to stop")

	stats, runErr := sess.Run(ctx, summaries)

	fmt.Printf("\nFrames:    %d (%d processed)\n", stats.Frames, stats.Processed)
	fmt.Printf("Faces:     %d (%d known, %d unknown)\n", stats.Faces, stats.Known, stats.Unknown)
	fmt.Printf("Recorded:  %d\n", stats.Recorded)
	if stats.LedgerFailures > 0 {
		fmt.Printf("Ledger write failures: %d\n", stats.LedgerFailures)
	}
	if stats.UnknownSnapshot != "" {
		fmt.Printf("Unknown face saved to %s\n", stats.UnknownSnapshot)
	}

	// The session context may already be cancelled; the final summary must still print.
	if summary, err := guard.Summary(context.WithoutCancel(ctx), guard.Today()); err != nil {
		slog.Warn("loading final summary", "error", err)
	} else {
		summary.Fprint(os.Stdout)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("attendance session: %w", runErr)
	}
	return nil
}
