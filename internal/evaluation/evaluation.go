// Package evaluation measures recognition quality by matching every gallery
// entry against the gallery and aggregating the outcomes.
package evaluation

import (
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// ErrInsufficientData is returned for an empty gallery.
var ErrInsufficientData = errors.New("insufficient data for evaluation")

// NoPrediction labels queries that had no candidate to match against.
const NoPrediction = "(none)"

// Mode selects the candidate set for each query.
type Mode string

const (
	// SelfComparison keeps the query's own entry among the candidates.
	SelfComparison Mode = "self"
	// LeaveOneOut removes the query's own entry from the candidates.
	LeaveOneOut Mode = "leave-one-out"
)

// Options configures Evaluate.
type Options struct {
	Mode            Mode
	Threshold       float64 // operating threshold; 0 accepts exact matches only
	SweepThresholds []float64
	CurveThresholds []float64
	Metric          facematch.Metric // Euclidean when nil
	Concurrency     int
	Progress        io.Writer // progress bar output, none when nil
}

// Query is the outcome for one gallery entry used as a query.
type Query struct {
	Index           int
	GroundTruth     string
	GroundTruthName string
	Predicted       string
	PredictedName   string
	Distance        float64
	Decision        facematch.Decision
}

// Correct reports whether the nearest identity is the query's own.
func (q Query) Correct() bool {
	return q.Predicted == q.GroundTruth
}

// Tally counts decisions at one threshold.
type Tally struct {
	Threshold float64
	Correct   int // accepted and right
	Incorrect int // accepted and wrong
	Unknown   int // rejected
}

// Total returns the number of queries counted.
func (t Tally) Total() int {
	return t.Correct + t.Incorrect + t.Unknown
}

// Accuracy returns Correct over Total, 0 for an empty tally.
func (t Tally) Accuracy() float64 {
	if t.Total() == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Total())
}

// CurvePoint is the fraction of queries accepted and correct at a threshold.
type CurvePoint struct {
	Threshold float64
	Accuracy  float64
}

// Result holds the per-query outcomes and every aggregate.
type Result struct {
	Mode      Mode
	Threshold float64
	Queries   []Query
	Sweep     []Tally
	Curve     []CurvePoint

	Accuracy  float64
	Precision float64 // weighted by support
	Recall    float64
	F1        float64

	Classes            []ClassStats
	Distances          DistanceStats
	CorrectDistances   []float64
	IncorrectDistances []float64
	Confusion          ConfusionMatrix

	Warnings []string
}

// Evaluate runs every gallery entry as a query and aggregates the results.
func Evaluate(g *gallery.Gallery, opts Options) (*Result, error) {
	if g.Len() == 0 {
		return nil, ErrInsufficientData
	}
	if opts.Mode == "" {
		opts.Mode = SelfComparison
	}
	if opts.Mode != SelfComparison && opts.Mode != LeaveOneOut {
		return nil, fmt.Errorf("unknown evaluation mode %q", opts.Mode)
	}
	if opts.Threshold < 0 || math.IsNaN(opts.Threshold) {
		return nil, fmt.Errorf("invalid threshold %v", opts.Threshold)
	}
	if opts.Metric == nil {
		opts.Metric = facematch.Euclidean{}
	}

	queries, err := runQueries(g, opts)
	if err != nil {
		return nil, err
	}

	r := &Result{
		Mode:      opts.Mode,
		Threshold: opts.Threshold,
		Queries:   queries,
		Sweep:     sweep(queries, opts.SweepThresholds),
		Curve:     curve(queries, opts.CurveThresholds),
		Warnings:  warnings(g, opts.Mode),
	}
	r.aggregate()
	return r, nil
}

// runQueries resolves all entries concurrently. Results are stored by index
// so the output order matches the gallery.
func runQueries(g *gallery.Gallery, opts Options) ([]Query, error) {
	matcher := facematch.NewMatcher(g, opts.Metric)
	n := g.Len()
	queries := make([]Query, n)
	errs := make([]error, n)

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Evaluating"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			queries[i], errs[i] = runQuery(matcher, g.At(i), i, opts)
			if bar != nil {
				_ = bar.Add(1)
			}
		}(i)
	}
	wg.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("query %d (%s): %w", i, g.At(i).IdentityID, err)
		}
	}
	return queries, nil
}

func runQuery(m *facematch.Matcher, e gallery.Entry, index int, opts Options) (Query, error) {
	var (
		res facematch.MatchResult
		err error
	)
	if opts.Mode == LeaveOneOut {
		res, err = m.ResolveExcluding(e.Embedding, opts.Threshold, index)
	} else {
		res, err = m.Resolve(e.Embedding, opts.Threshold)
	}
	if err != nil {
		return Query{}, err
	}

	q := Query{
		Index:           index,
		GroundTruth:     e.IdentityID,
		GroundTruthName: e.DisplayName,
		Predicted:       NoPrediction,
		Distance:        res.Distance,
		Decision:        res.Decision,
	}
	if res.HasCandidate() {
		q.Predicted = res.IdentityID
		q.PredictedName = res.DisplayName
	}
	return q, nil
}

func sweep(queries []Query, thresholds []float64) []Tally {
	out := make([]Tally, 0, len(thresholds))
	for _, t := range thresholds {
		tally := Tally{Threshold: t}
		for _, q := range queries {
			switch {
			case q.Predicted == NoPrediction || q.Distance > t:
				tally.Unknown++
			case q.Correct():
				tally.Correct++
			default:
				tally.Incorrect++
			}
		}
		out = append(out, tally)
	}
	return out
}

func curve(queries []Query, thresholds []float64) []CurvePoint {
	out := make([]CurvePoint, 0, len(thresholds))
	for _, t := range thresholds {
		correct := 0
		for _, q := range queries {
			if q.Predicted != NoPrediction && q.Distance <= t && q.Correct() {
				correct++
			}
		}
		out = append(out, CurvePoint{Threshold: t, Accuracy: float64(correct) / float64(len(queries))})
	}
	return out
}

func warnings(g *gallery.Gallery, mode Mode) []string {
	var single []string
	for _, id := range g.Identities() {
		if id.Samples == 1 {
			single = append(single, id.IdentityID)
		}
	}
	if len(single) == 0 {
		return nil
	}
	sort.Strings(single)

	var w []string
	identities := len(g.Identities())
	if mode == SelfComparison {
		w = append(w, fmt.Sprintf(
			"%d of %d identities have a single sample; self-comparison matches them to themselves at distance 0, so accuracy is optimistic",
			len(single), identities))
	} else {
		w = append(w, fmt.Sprintf(
			"%d of %d identities have a single sample; leave-one-out cannot match them correctly",
			len(single), identities))
	}
	return w
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
