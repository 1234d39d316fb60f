package gallery

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// storeFile is the persisted layout: three index-aligned sequences.
type storeFile struct {
	Encodings [][]float32
	Names     []string
	IDs       []string
}

// Encode writes the gallery in store format.
func Encode(w io.Writer, g *Gallery) error {
	sf := storeFile{
		Encodings: make([][]float32, g.Len()),
		Names:     make([]string, g.Len()),
		IDs:       make([]string, g.Len()),
	}
	for i := range g.Len() {
		e := g.At(i)
		sf.Encodings[i] = e.Embedding
		sf.Names[i] = e.DisplayName
		sf.IDs[i] = e.IdentityID
	}
	if err := gob.NewEncoder(w).Encode(&sf); err != nil {
		return fmt.Errorf("encoding gallery: %w", err)
	}
	return nil
}

// Decode reads a gallery in store format.
func Decode(r io.Reader) (*Gallery, error) {
	var sf storeFile
	if err := gob.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptGallery, err)
	}
	if len(sf.Encodings) != len(sf.Names) || len(sf.Encodings) != len(sf.IDs) {
		return nil, fmt.Errorf("%w: %d encodings, %d names, %d ids",
			ErrCorruptGallery, len(sf.Encodings), len(sf.Names), len(sf.IDs))
	}
	entries := make([]Entry, len(sf.Encodings))
	for i := range sf.Encodings {
		entries[i] = Entry{IdentityID: sf.IDs[i], DisplayName: sf.Names[i], Embedding: sf.Encodings[i]}
	}
	return New(entries)
}

// Save writes the gallery to path atomically: readers see either the old
// file or the complete new one.
func Save(path string, g *Gallery) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating gallery directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp gallery file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := Encode(tmp, g); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing gallery file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing gallery file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing gallery file: %w", err)
	}
	return nil
}

// Load reads a gallery saved with Save.
func Load(path string) (*Gallery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening gallery: %w", err)
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading gallery %s: %w", path, err)
	}
	return g, nil
}
