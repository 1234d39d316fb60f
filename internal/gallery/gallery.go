// Package gallery holds the known face embeddings that live frames are
// matched against. A Gallery is read-only once constructed; rebuilding it
// means writing a new store file and loading it again.
package gallery

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when entries carry embeddings of different lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrCorruptGallery is returned when a persisted gallery cannot be decoded
	// or its parallel sequences differ in length.
	ErrCorruptGallery = errors.New("corrupt gallery store")
)

// Embedding is a face vector produced by the embedding service.
type Embedding []float32

// Clone returns a copy that does not share the backing array.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// Entry is one known face.
type Entry struct {
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Embedding   Embedding `json:"-"`
}

// Gallery is an ordered, immutable collection of entries with a common dimensionality.
// The zero value and a nil *Gallery are both empty galleries.
type Gallery struct {
	entries []Entry
	dim     int
}

// New validates entries and returns a gallery that owns copies of them.
func New(entries []Entry) (*Gallery, error) {
	g := &Gallery{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("entry %d (%s): empty embedding: %w", i, e.IdentityID, ErrDimensionMismatch)
		}
		if i == 0 {
			g.dim = len(e.Embedding)
		} else if len(e.Embedding) != g.dim {
			return nil, fmt.Errorf("entry %d (%s) has %d dimensions, expected %d: %w",
				i, e.IdentityID, len(e.Embedding), g.dim, ErrDimensionMismatch)
		}
		g.entries[i] = Entry{
			IdentityID:  e.IdentityID,
			DisplayName: e.DisplayName,
			Embedding:   e.Embedding.Clone(),
		}
	}
	return g, nil
}

// Len returns the number of entries.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Dim returns the embedding dimensionality, 0 for an empty gallery.
func (g *Gallery) Dim() int {
	if g == nil {
		return 0
	}
	return g.dim
}

// At returns the entry at index i. The embedding must not be modified.
func (g *Gallery) At(i int) Entry {
	return g.entries[i]
}

// Entries returns a copy of the entry slice in gallery order.
func (g *Gallery) Entries() []Entry {
	if g == nil {
		return nil
	}
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// Embeddings returns the embeddings in gallery order without copying them.
func (g *Gallery) Embeddings() []Embedding {
	if g == nil {
		return nil
	}
	out := make([]Embedding, len(g.entries))
	for i := range g.entries {
		out[i] = g.entries[i].Embedding
	}
	return out
}

// Identity summarizes the entries stored for one identity id.
type Identity struct {
	IdentityID  string `json:"identity_id"`
	DisplayName string `json:"display_name"`
	Samples     int    `json:"samples"`
}

// Identities lists distinct identity ids in order of first appearance.
// The display name is taken from the first entry of each identity.
func (g *Gallery) Identities() []Identity {
	if g == nil {
		return nil
	}
	index := make(map[string]int)
	var out []Identity
	for _, e := range g.entries {
		if i, ok := index[e.IdentityID]; ok {
			out[i].Samples++
			continue
		}
		index[e.IdentityID] = len(out)
		out = append(out, Identity{IdentityID: e.IdentityID, DisplayName: e.DisplayName, Samples: 1})
	}
	return out
}

// With returns a new gallery with extra entries appended. The receiver is unchanged.
func (g *Gallery) With(extra ...Entry) (*Gallery, error) {
	all := append(g.Entries(), extra...)
	return New(all)
}
