package facematch

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// Matcher resolves queries against one gallery with a fixed metric.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	gallery *gallery.Gallery
	metric  Metric
}

// NewMatcher binds a gallery to a metric. A nil metric means Euclidean.
func NewMatcher(g *gallery.Gallery, m Metric) *Matcher {
	if m == nil {
		m = Euclidean{}
	}
	return &Matcher{gallery: g, metric: m}
}

// Gallery returns the gallery the matcher was built with.
func (m *Matcher) Gallery() *gallery.Gallery {
	return m.gallery
}

// Metric returns the distance metric in use.
func (m *Matcher) Metric() Metric {
	return m.metric
}

// Resolve finds the nearest gallery entry to query and accepts it when its
// distance is at most threshold. Ties go to the entry that comes first in
// gallery order. An empty gallery yields NoMatch without computing anything.
func (m *Matcher) Resolve(query gallery.Embedding, threshold float64) (MatchResult, error) {
	return m.resolve(query, threshold, -1)
}

// ResolveExcluding is Resolve with the entry at index skip left out of the
// candidate set. It is used for leave-one-out evaluation.
func (m *Matcher) ResolveExcluding(query gallery.Embedding, threshold float64, skip int) (MatchResult, error) {
	return m.resolve(query, threshold, skip)
}

func (m *Matcher) resolve(query gallery.Embedding, threshold float64, skip int) (MatchResult, error) {
	n := m.gallery.Len()
	if n == 0 || (n == 1 && skip == 0) {
		return NoMatch(), nil
	}
	if len(query) != m.gallery.Dim() {
		return NoMatch(), fmt.Errorf("query has %d dimensions, gallery %d: %w", len(query), m.gallery.Dim(), ErrDimensionMismatch)
	}

	distances, err := DistancesWith(m.metric, query, m.gallery.Embeddings())
	if err != nil {
		return NoMatch(), err
	}

	best := -1
	for i, d := range distances {
		if i == skip {
			continue
		}
		// Strict comparison keeps the first occurrence on ties.
		if best < 0 || d < distances[best] {
			best = i
		}
	}
	return newResult(m.gallery.At(best), best, distances[best], threshold), nil
}

// Resolve matches query against g using Euclidean distance.
func Resolve(query gallery.Embedding, g *gallery.Gallery, threshold float64) (MatchResult, error) {
	return NewMatcher(g, Euclidean{}).Resolve(query, threshold)
}

// ResolveExcluding matches query against g without the entry at index skip.
func ResolveExcluding(query gallery.Embedding, g *gallery.Gallery, threshold float64, skip int) (MatchResult, error) {
	return NewMatcher(g, Euclidean{}).ResolveExcluding(query, threshold, skip)
}
