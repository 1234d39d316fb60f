package database

import (
	"context"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// LedgerStore is a ledger.Store backed by a database table with a unique
// (identity_id, day) key. Duplicate inserts return ledger.ErrDuplicate.
type LedgerStore interface {
	ledger.Store
	ledger.Locator

	// Days lists the days that have at least one record, newest first
	Days(ctx context.Context, limit int) ([]ledger.Day, error)
}

// GalleryReader provides read-only access to the gallery table
type GalleryReader interface {
	// All returns every entry in gallery order
	All(ctx context.Context) (*gallery.Gallery, error)
	// Count returns the number of stored entries
	Count(ctx context.Context) (int, error)
	// Nearest returns up to k entries closest to the embedding by Euclidean distance
	Nearest(ctx context.Context, embedding gallery.Embedding, k int) ([]gallery.Neighbor, error)
}

// GalleryWriter replaces the stored gallery
type GalleryWriter interface {
	GalleryReader

	// Replace swaps the whole gallery in one transaction
	Replace(ctx context.Context, g *gallery.Gallery) error
}
