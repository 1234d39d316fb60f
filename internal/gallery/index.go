package gallery

import (
	"fmt"
	"sort"

	"github.com/coder/hnsw"
)

// HNSW parameters sized for classroom galleries (tens to a few thousand entries).
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswEfSearch is the search candidate pool size.
	hnswEfSearch = 64
)

// Neighbor is a gallery entry found near a query embedding.
type Neighbor struct {
	Index    int
	Entry    Entry
	Distance float64
}

// ConfusablePair is two entries of different identities that lie within a
// matching threshold of each other.
type ConfusablePair struct {
	A        Neighbor
	B        Neighbor
	Distance float64
}

// Index is an approximate nearest neighbour index over a gallery using
// Euclidean distance. It is used for diagnostics only; the resolver always
// scans the full gallery.
type Index struct {
	graph   *hnsw.Graph[int]
	gallery *Gallery
}

// NewIndex builds an HNSW graph keyed by gallery position.
func NewIndex(g *Gallery) *Index {
	graph := hnsw.NewGraph[int]()
	graph.M = hnswMaxNeighbors
	graph.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	graph.EfSearch = hnswEfSearch
	graph.Distance = hnsw.EuclideanDistance

	for i := range g.Len() {
		graph.Add(hnsw.MakeNode(i, []float32(g.At(i).Embedding)))
	}
	return &Index{graph: graph, gallery: g}
}

// Nearest returns up to k entries closest to query, nearest first.
func (x *Index) Nearest(query Embedding, k int) ([]Neighbor, error) {
	if x.gallery.Len() == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != x.gallery.Dim() {
		return nil, fmt.Errorf("query has %d dimensions, gallery %d: %w", len(query), x.gallery.Dim(), ErrDimensionMismatch)
	}

	nodes := x.graph.Search([]float32(query), k)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Neighbor{
			Index:    n.Key,
			Entry:    x.gallery.At(n.Key),
			Distance: float64(hnsw.EuclideanDistance(query, n.Value)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

// NearestFunc returns up to k entries closest to query, nearest first, with
// Neighbor.Index set to the gallery position.
type NearestFunc func(query Embedding, k int) ([]Neighbor, error)

// ConfusablePairs lists pairs of entries with different identity ids whose
// distance is at most threshold, closest pairs first. k bounds how many
// neighbours are inspected per entry.
func (x *Index) ConfusablePairs(threshold float64, k int) []ConfusablePair {
	return ConfusablePairs(x.gallery, x.Nearest, threshold, k)
}

// ConfusablePairs is Index.ConfusablePairs over any neighbour search whose
// positions refer to g. Entries whose search fails are skipped.
func ConfusablePairs(g *Gallery, nearest NearestFunc, threshold float64, k int) []ConfusablePair {
	type key struct{ a, b int }
	seen := make(map[key]bool)
	var pairs []ConfusablePair

	for i := range g.Len() {
		self := g.At(i)
		// k+1 because the entry finds itself.
		neighbors, err := nearest(self.Embedding, k+1)
		if err != nil {
			continue
		}
		for _, n := range neighbors {
			if n.Index == i || n.Index < 0 || n.Index >= g.Len() ||
				n.Entry.IdentityID == self.IdentityID || n.Distance > threshold {
				continue
			}
			kk := key{min(i, n.Index), max(i, n.Index)}
			if seen[kk] {
				continue
			}
			seen[kk] = true
			a := Neighbor{Index: kk.a, Entry: g.At(kk.a), Distance: n.Distance}
			b := Neighbor{Index: kk.b, Entry: g.At(kk.b), Distance: n.Distance}
			pairs = append(pairs, ConfusablePair{A: a, B: b, Distance: n.Distance})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Distance < pairs[j].Distance })
	return pairs
}
