package facematch

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

var (
	// ErrDimensionMismatch is shared with the gallery package so either can be checked with errors.Is.
	ErrDimensionMismatch = gallery.ErrDimensionMismatch
	// ErrEmptyCandidates is returned by Distances when there is nothing to compare against.
	ErrEmptyCandidates = errors.New("no candidate embeddings")
	// ErrUnknownMetric is returned by MetricByName.
	ErrUnknownMetric = errors.New("unknown distance metric")
)

// Metric measures dissimilarity between two embeddings of equal length.
type Metric interface {
	Name() string
	Distance(a, b []float32) float64
}

// Euclidean is the L2 distance the face model is trained for.
type Euclidean struct{}

func (Euclidean) Name() string { return "euclidean" }

func (Euclidean) Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Cosine computes the cosine distance between two vectors
// Returns a value between 0 (identical) and 2 (opposite)
// Cosine distance = 1 - cosine similarity
type Cosine struct{}

func (Cosine) Name() string { return "cosine" }

func (Cosine) Distance(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0 // Maximum distance for zero vectors
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	similarity = max(-1, min(1, similarity))
	return 1 - similarity
}

// MetricByName maps a configuration value to a metric. Empty means Euclidean.
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "euclidean", "l2":
		return Euclidean{}, nil
	case "cosine":
		return Cosine{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// Distances returns the Euclidean distance from query to every candidate, in input order.
func Distances(query gallery.Embedding, candidates []gallery.Embedding) ([]float64, error) {
	return DistancesWith(Euclidean{}, query, candidates)
}

// DistancesWith is Distances for an arbitrary metric.
func DistancesWith(m Metric, query gallery.Embedding, candidates []gallery.Embedding) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidates
	}
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		if len(c) != len(query) {
			return nil, fmt.Errorf("candidate %d has %d dimensions, query %d: %w", i, len(c), len(query), ErrDimensionMismatch)
		}
		out[i] = m.Distance(query, c)
	}
	return out, nil
}
