// Package session runs the live attendance loop: pull a frame, detect and
// resolve faces, mark attendance for recognised identities and render.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/embedder"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/imaging"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/metrics"
)

// FaceResult is one face in a processed frame. BBox is in full-frame pixels.
type FaceResult struct {
	BBox    []float64
	Match   facematch.MatchResult
	Outcome ledger.Outcome // set when this sighting was sent to the ledger
}

// Renderer displays a frame with its face results before the next frame
// is pulled.
type Renderer interface {
	Render(ctx context.Context, frame capture.Frame, faces []FaceResult) error
}

// Stats counts what a run did.
type Stats struct {
	Frames          int
	Processed       int
	Faces           int
	Known           int
	Unknown         int
	Recorded        int
	LedgerFailures  int
	UnknownSnapshot string
}

// Session holds the per-run state: the marked cache and the unknown
// snapshot flag live only as long as the Session.
type Session struct {
	source   capture.Source
	detector embedder.Source
	matcher  *facematch.Matcher
	guard    *ledger.Guard

	renderer     Renderer
	metrics      *metrics.Metrics
	logger       *slog.Logger
	summaryOut   io.Writer
	processEvery int
	scale        float64
	threshold    float64
	unknownDir   string
	now          func() time.Time

	marked       map[string]struct{}
	unknownSaved bool
	last         []FaceResult
	stats        Stats
}

// Option configures a Session.
type Option func(*Session)

// WithRenderer sets the renderer. Without one frames are not displayed.
func WithRenderer(r Renderer) Option {
	return func(s *Session) { s.renderer = r }
}

// WithMetrics records frame and recognition metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSummaryOutput sets where requested summaries are printed.
func WithSummaryOutput(w io.Writer) Option {
	return func(s *Session) { s.summaryOut = w }
}

// WithProcessEvery processes one frame in n. Values below 1 mean every frame.
func WithProcessEvery(n int) Option {
	return func(s *Session) { s.processEvery = max(1, n) }
}

// WithScale sets the downscale factor applied before detection.
func WithScale(f float64) Option {
	return func(s *Session) { s.scale = f }
}

// WithThreshold sets the match threshold.
func WithThreshold(t float64) Option {
	return func(s *Session) { s.threshold = t }
}

// WithUnknownDir sets where the first unknown face of the run is saved.
// Empty disables saving.
func WithUnknownDir(dir string) Option {
	return func(s *Session) { s.unknownDir = dir }
}

// WithClock overrides the wall clock used for snapshot names.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session.
func New(source capture.Source, detector embedder.Source, matcher *facematch.Matcher, guard *ledger.Guard, opts ...Option) *Session {
	s := &Session{
		source:       source,
		detector:     detector,
		matcher:      matcher,
		guard:        guard,
		logger:       slog.Default(),
		summaryOut:   os.Stdout,
		processEvery: constants.DefaultProcessEveryNFrames,
		scale:        constants.DefaultFrameScale,
		threshold:    constants.DefaultDistanceThreshold,
		now:          time.Now,
		marked:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run pulls frames until ctx is cancelled or a finite source ends. Every
// value received on summaries prints the current day's summary without
// holding up capture. Capture failure and gallery dimension mismatch end
// the run with an error.
func (s *Session) Run(ctx context.Context, summaries <-chan struct{}) (Stats, error) {
	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if summaries != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watchSummaries(runCtx, summaries)
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		frame, err := s.source.Next(runCtx)
		if err != nil {
			switch {
			case errors.Is(err, capture.ErrEndOfStream):
				return s.stats, nil
			case ctx.Err() != nil:
				return s.stats, nil
			default:
				return s.stats, fmt.Errorf("capture: %w", err)
			}
		}
		if err := s.step(runCtx, frame); err != nil {
			return s.stats, err
		}
	}
}

// step handles one frame. Only every Nth frame is processed; the others
// are rendered with the previous result.
func (s *Session) step(ctx context.Context, frame capture.Frame) error {
	processed := s.stats.Frames%s.processEvery == 0
	s.stats.Frames++
	s.metrics.ObserveFrame(processed)

	if processed {
		results, err := s.processFrame(ctx, frame)
		if err != nil {
			return err
		}
		s.last = results
	}

	if s.renderer != nil {
		if err := s.renderer.Render(ctx, frame, s.last); err != nil {
			s.logger.Warn("render failed", "frame", frame.Seq, "error", err)
		}
	}
	return nil
}

func (s *Session) processFrame(ctx context.Context, frame capture.Frame) ([]FaceResult, error) {
	s.stats.Processed++

	small := imaging.Scale(frame.Image, s.scale)
	data, err := imaging.EncodeJPEG(small)
	if err != nil {
		s.logger.Warn("failed to encode frame", "frame", frame.Seq, "error", err)
		return nil, nil
	}
	faces, err := s.detector.DetectFaces(ctx, data)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("face detection failed", "frame", frame.Seq, "error", err)
		}
		return nil, nil
	}

	scale := s.scale
	if scale <= 0 || scale >= 1 {
		scale = 1
	}
	results := make([]FaceResult, 0, len(faces))
	for _, face := range faces {
		match, err := s.matcher.Resolve(gallery.Embedding(face.Embedding), s.threshold)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", frame.Seq, err)
		}
		s.metrics.ObserveRecognition(match)
		s.stats.Faces++

		res := FaceResult{BBox: facematch.ScaleBBox(face.BBox, scale), Match: match}
		if match.Known() {
			s.stats.Known++
			res.Outcome = s.mark(ctx, match)
		} else {
			s.stats.Unknown++
			s.saveUnknown(frame, res.BBox)
		}
		results = append(results, res)
	}
	return results, nil
}

// mark sends a known identity to the ledger unless this run already saw it
// recorded today. Failures leave the identity eligible for the next sighting.
func (s *Session) mark(ctx context.Context, match facematch.MatchResult) ledger.Outcome {
	day := s.guard.Today()
	key := day.String() + "/" + match.IdentityID
	if _, ok := s.marked[key]; ok {
		return ""
	}

	outcome, err := s.guard.MarkPresent(ctx, match.IdentityID, match.DisplayName, day)
	if err != nil {
		s.stats.LedgerFailures++
		s.logger.Error("failed to mark attendance",
			"identity", match.IdentityID, "name", match.DisplayName, "error", err)
		return ""
	}
	s.marked[key] = struct{}{}
	if outcome == ledger.Recorded {
		s.stats.Recorded++
		s.logger.Info("attendance recorded",
			"identity", match.IdentityID, "name", match.DisplayName, "distance", match.Distance)
	}
	return outcome
}

// saveUnknown writes the first unknown face of the run to the unknown directory.
func (s *Session) saveUnknown(frame capture.Frame, bbox []float64) {
	if s.unknownSaved || s.unknownDir == "" {
		return
	}
	crop := imaging.Crop(frame.Image, bbox)
	if crop == nil {
		return
	}
	data, err := imaging.EncodeJPEG(crop)
	if err != nil {
		s.logger.Warn("failed to encode unknown face", "error", err)
		return
	}
	if err := os.MkdirAll(s.unknownDir, 0o755); err != nil {
		s.logger.Warn("failed to create unknown directory", "dir", s.unknownDir, "error", err)
		return
	}
	name := fmt.Sprintf("unknown_%s_%s.jpg", s.now().Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(s.unknownDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn("failed to save unknown face", "path", path, "error", err)
		return
	}
	s.unknownSaved = true
	s.stats.UnknownSnapshot = path
	s.logger.Warn("unknown person detected, snapshot saved", "path", path)
}

func (s *Session) watchSummaries(ctx context.Context, requests <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-requests:
			if !ok {
				return
			}
			summary, err := s.guard.Summary(ctx, s.guard.Today())
			if err != nil {
				s.logger.Error("failed to load attendance summary", "error", err)
				continue
			}
			summary.Fprint(s.summaryOut)
		}
	}
}
