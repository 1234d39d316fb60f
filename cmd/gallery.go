package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Build and inspect the face gallery",
}

var galleryBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the gallery from the dataset directory",
	Long: `Encode every image in DATASET_DIR and atomically replace the gallery file.
Images must be named NUMBER_Name_Surname.ext (.jpg, .jpeg, .png, .bmp); the first
detected face of each image is used.

With --db the gallery is also stored in PostgreSQL (DATABASE_URL). Set
GALLERY_SOURCE=postgres to match, evaluate and list against that copy.`,
	Args: cobra.NoArgs,
	RunE: runGalleryBuild,
}

var galleryAddCmd = &cobra.Command{
	Use:   "add <photo> <number> <name>",
	Short: "Add a student to the dataset and rebuild the gallery",
	Long: `Copy a photo into the dataset as NUMBER_Name_Surname.jpg and rebuild the
gallery. The photo must contain a detectable face.

Example:
  face-attendance gallery add ~/photos/ali.jpg 1042 "Ali Veli"`,
	Args: cobra.ExactArgs(3),
	RunE: runGalleryAdd,
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List identities in the gallery",
	Args:  cobra.NoArgs,
	RunE:  runGalleryList,
}

var galleryNeighborsCmd = &cobra.Command{
	Use:   "neighbors",
	Short: "List pairs of different students whose faces are easily confused",
	Long: `Search the gallery for entries of different identities closer than the
matching threshold. Such pairs are likely to be mistaken for each other during
a live session and usually need better dataset photos.`,
	Args: cobra.NoArgs,
	RunE: runGalleryNeighbors,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(galleryBuildCmd, galleryAddCmd, galleryListCmd, galleryNeighborsCmd)

	for _, c := range []*cobra.Command{galleryBuildCmd, galleryAddCmd} {
		c.Flags().String("dataset", "", "Dataset directory (overrides DATASET_DIR)")
		c.Flags().Int("concurrency", runtime.NumCPU(), "Number of images encoded in parallel")
		c.Flags().Bool("db", false, "Also store the gallery in PostgreSQL")
	}
	galleryListCmd.Flags().String("query", "", "Filter by name or number (diacritics-insensitive)")
	galleryNeighborsCmd.Flags().Float64("threshold", constants.DefaultDistanceThreshold, "Distance below which pairs are reported (overrides MATCH_THRESHOLD)")
	galleryNeighborsCmd.Flags().Int("k", constants.DefaultNeighborCount, "Neighbors examined per entry")
}

func datasetDir(cmd *cobra.Command, cfg *config.Config) string {
	if dir := mustGetString(cmd, "dataset"); dir != "" {
		return dir
	}
	return cfg.Paths.DatasetDir
}

func newBuilder(cmd *cobra.Command, cfg *config.Config) *gallery.Builder {
	return gallery.NewBuilder(embedder.NewClient(cfg.Embedding.URL),
		gallery.WithConcurrency(mustGetInt(cmd, "concurrency")),
		gallery.WithProgress(os.Stderr),
	)
}

func printBuildReport(report *gallery.BuildReport) {
	if report == nil {
		return
	}
	var ok, noFace, failed int
	for _, o := range report.Outcomes {
		switch o.Status {
		case gallery.OutcomeOK:
			ok++
		case gallery.OutcomeNoFace:
			noFace++
			fmt.Printf("  no face:  %s\n", o.Image.Path)
		case gallery.OutcomeError:
			failed++
			fmt.Printf("  error:    %s: %v\n", o.Image.Path, o.Err)
		}
	}
	for _, name := range report.Invalid {
		fmt.Printf("  skipped:  %s (expected NUMBER_Name_Surname.ext)\n", name)
	}
	fmt.Printf("\nEncoded: %d, no face: %d, errors: %d, skipped: %d\n", ok, noFace, failed, len(report.Invalid))
}

// storeGalleryInDB replaces the PostgreSQL copy of the gallery.
func storeGalleryInDB(ctx context.Context, cfg *config.Config, g *gallery.Gallery) error {
	closeDB, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	writer, err := database.GetGalleryWriter(ctx)
	if err != nil {
		return err
	}
	if err := writer.Replace(ctx, g); err != nil {
		return fmt.Errorf("storing gallery in PostgreSQL: %w", err)
	}
	count, err := writer.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Stored %d entries in PostgreSQL\n", count)
	return nil
}

func finishBuild(cmd *cobra.Command, cfg *config.Config, g *gallery.Gallery, report *gallery.BuildReport, err error) error {
	printBuildReport(report)
	if err != nil {
		return fmt.Errorf("building gallery: %w", err)
	}
	fmt.Printf("Gallery saved to %s (%d entries, %d identities)\n",
		cfg.Paths.GalleryFile, g.Len(), len(g.Identities()))

	if mustGetBool(cmd, "db") {
		return storeGalleryInDB(cmd.Context(), cfg, g)
	}
	return nil
}

func runGalleryBuild(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	dir := datasetDir(cmd, cfg)

	fmt.Printf("Encoding faces from %s\n", dir)
	g, report, err := newBuilder(cmd, cfg).Rebuild(cmd.Context(), dir, cfg.Paths.GalleryFile)
	return finishBuild(cmd, cfg, g, report, err)
}

func runGalleryAdd(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	photo, id, name := args[0], args[1], args[2]

	if !gallery.HasNumericID(id) {
		fmt.Printf("Warning: student number %q is not numeric\n", id)
	}

	g, report, err := newBuilder(cmd, cfg).Add(cmd.Context(), datasetDir(cmd, cfg), cfg.Paths.GalleryFile, photo, id, name)
	return finishBuild(cmd, cfg, g, report, err)
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	g, _, closeGallery, err := loadGallery(cmd.Context(), cfg)
	defer closeGallery()
	if err != nil {
		return err
	}

	query := mustGetString(cmd, "query")
	identities := g.Identities()
	sort.SliceStable(identities, func(i, j int) bool {
		return identities[i].IdentityID < identities[j].IdentityID
	})

	shown := 0
	for _, id := range identities {
		if query != "" && id.IdentityID != query && !facematch.MatchesNameQuery(id.DisplayName, query) {
			continue
		}
		fmt.Printf("%-10s %-30s %d sample(s)\n", id.IdentityID, id.DisplayName, id.Samples)
		shown++
	}
	fmt.Printf("\n%d of %d identities, %d entries, dimension %d\n", shown, len(identities), g.Len(), g.Dim())
	return nil
}

// confusablePairs searches the HNSW index for file galleries and pgvector
// for galleries read from PostgreSQL.
func confusablePairs(ctx context.Context, g *gallery.Gallery, reader database.GalleryReader, threshold float64, k int) []gallery.ConfusablePair {
	if reader == nil {
		return gallery.NewIndex(g).ConfusablePairs(threshold, k)
	}
	nearest := func(query gallery.Embedding, n int) ([]gallery.Neighbor, error) {
		return reader.Nearest(ctx, query, n)
	}
	return gallery.ConfusablePairs(g, nearest, threshold, k)
}

func runGalleryNeighbors(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	g, reader, closeGallery, err := loadGallery(cmd.Context(), cfg)
	defer closeGallery()
	if err != nil {
		return err
	}
	if g.Len() == 0 {
		fmt.Println("Gallery is empty")
		return nil
	}

	threshold := thresholdFlag(cmd, cfg.Matching.Threshold)
	pairs := confusablePairs(cmd.Context(), g, reader, threshold, mustGetInt(cmd, "k"))
	if len(pairs) == 0 {
		fmt.Printf("No pairs of different students within %.2f\n", threshold)
		return nil
	}

	fmt.Printf("%d confusable pair(s) within %.2f:\n\n", len(pairs), threshold)
	for _, p := range pairs {
		fmt.Printf("  %.4f  %s %s  <->  %s %s\n", p.Distance,
			p.A.Entry.IdentityID, p.A.Entry.DisplayName,
			p.B.Entry.IdentityID, p.B.Entry.DisplayName)
	}
	return nil
}
