package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/imaging"
	"github.com/schollz/progressbar/v3"
)

const (
	defaultBuildConcurrency = 4
	maxImageSize            = 1920
)

// ErrNoFaces is returned when a rebuild produced no entries at all.
var ErrNoFaces = errors.New("no faces found in dataset")

// OutcomeStatus is the per-image result of a rebuild.
type OutcomeStatus string

const (
	OutcomeOK     OutcomeStatus = "ok"
	OutcomeNoFace OutcomeStatus = "no_face"
	OutcomeError  OutcomeStatus = "error"
)

// FileOutcome reports what happened to one dataset image.
type FileOutcome struct {
	Image  DatasetImage
	Status OutcomeStatus
	Faces  int
	Err    error
}

// BuildReport summarizes an offline rebuild.
type BuildReport struct {
	Outcomes []FileOutcome
	Invalid  []string // file names that do not follow ID_Name.ext
	Entries  int
}

// Builder regenerates the persisted gallery from a dataset directory.
type Builder struct {
	source      embedder.Source
	concurrency int
	progress    io.Writer
	logger      *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithConcurrency sets how many images are sent to the embedding service at once.
func WithConcurrency(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithProgress renders a progress bar to w.
func WithProgress(w io.Writer) BuilderOption {
	return func(b *Builder) { b.progress = w }
}

// WithLogger sets the logger used for per-file diagnostics.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder backed by the given embedding source.
func NewBuilder(source embedder.Source, opts ...BuilderOption) *Builder {
	b := &Builder{
		source:      source,
		concurrency: defaultBuildConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every labelled image in datasetDir. The first detected face of
// each image becomes one entry; entry order follows the sorted file names.
func (b *Builder) Build(ctx context.Context, datasetDir string) (*Gallery, *BuildReport, error) {
	images, invalid, err := ScanDataset(datasetDir)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range invalid {
		b.logger.Warn("skipping dataset file with invalid name", "file", name, "expected", "ID_Name_Surname.jpg")
	}

	var bar *progressbar.ProgressBar
	if b.progress != nil && len(images) > 0 {
		bar = progressbar.NewOptions(len(images),
			progressbar.OptionSetWriter(b.progress),
			progressbar.OptionSetDescription("Encoding faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	// Results are stored by index so the gallery order does not depend on
	// which request finishes first.
	outcomes := make([]FileOutcome, len(images))
	embeddings := make([]Embedding, len(images))
	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for i, img := range images {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			outcomes[i], embeddings[i] = b.embedImage(ctx, img)
			if bar != nil {
				_ = bar.Add(1)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	report := &BuildReport{Outcomes: outcomes, Invalid: invalid}
	var entries []Entry
	for i, o := range outcomes {
		if o.Status != OutcomeOK {
			continue
		}
		entries = append(entries, Entry{
			IdentityID:  o.Image.IdentityID,
			DisplayName: o.Image.DisplayName,
			Embedding:   embeddings[i],
		})
	}
	report.Entries = len(entries)

	g, err := New(entries)
	if err != nil {
		return nil, report, err
	}
	return g, report, nil
}

func (b *Builder) embedImage(ctx context.Context, img DatasetImage) (FileOutcome, Embedding) {
	out := FileOutcome{Image: img}

	data, err := readForEmbedding(img.Path)
	if err != nil {
		out.Status, out.Err = OutcomeError, err
		return out, nil
	}

	faces, err := b.source.DetectFaces(ctx, data)
	if err != nil {
		out.Status, out.Err = OutcomeError, fmt.Errorf("detecting faces: %w", err)
		b.logger.Warn("embedding failed", "file", img.Path, "error", err)
		return out, nil
	}
	out.Faces = len(faces)
	if len(faces) == 0 {
		out.Status = OutcomeNoFace
		return out, nil
	}
	out.Status = OutcomeOK
	return out, Embedding(faces[0].Embedding).Clone()
}

// readForEmbedding loads an image file and normalizes it to a JPEG no larger
// than maxImageSize, since the embedding service does not accept BMP.
func readForEmbedding(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	img, err := imaging.Decode(raw)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeJPEG(imaging.ResizeToFit(img, maxImageSize))
}

// Rebuild runs Build and atomically replaces the store at galleryPath.
// An empty result leaves the existing store untouched.
func (b *Builder) Rebuild(ctx context.Context, datasetDir, galleryPath string) (*Gallery, *BuildReport, error) {
	g, report, err := b.Build(ctx, datasetDir)
	if err != nil {
		return nil, report, err
	}
	if g.Len() == 0 {
		return g, report, ErrNoFaces
	}
	if err := Save(galleryPath, g); err != nil {
		return nil, report, err
	}
	return g, report, nil
}

// Add copies a new student's photo into the dataset under the ID_Name.ext
// convention and rebuilds the whole store. The photo must contain a face.
func (b *Builder) Add(ctx context.Context, datasetDir, galleryPath, photoPath, id, name string) (*Gallery, *BuildReport, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" || strings.Contains(id, "_") {
		return nil, nil, fmt.Errorf("invalid identity %q / %q", id, name)
	}

	data, err := readForEmbedding(photoPath)
	if err != nil {
		return nil, nil, err
	}
	faces, err := b.source.DetectFaces(ctx, data)
	if err != nil {
		return nil, nil, fmt.Errorf("detecting faces: %w", err)
	}
	if len(faces) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", photoPath, ErrNoFaces)
	}

	if err := os.MkdirAll(datasetDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating dataset directory: %w", err)
	}
	target := filepath.Join(datasetDir, DatasetFileName(id, name, ".jpg"))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return nil, nil, fmt.Errorf("copying photo into dataset: %w", err)
	}

	return b.Rebuild(ctx, datasetDir, galleryPath)
}
