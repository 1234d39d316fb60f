package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/pgvector/pgvector-go"
)

// GalleryRepository stores gallery entries with pgvector embeddings
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new PostgreSQL gallery repository
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// Replace swaps the stored gallery for g in one transaction, so readers see
// either the old or the new gallery
func (r *GalleryRepository) Replace(ctx context.Context, g *gallery.Gallery) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM gallery_entries`); err != nil {
		return fmt.Errorf("clear gallery: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gallery_entries (position, identity_id, display_name, embedding)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("prepare gallery insert: %w", err)
	}
	defer stmt.Close()

	for i := range g.Len() {
		e := g.At(i)
		if _, err := stmt.ExecContext(ctx, i, e.IdentityID, e.DisplayName, pgvector.NewVector(e.Embedding)); err != nil {
			return fmt.Errorf("insert gallery entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit gallery: %w", err)
	}
	return nil
}

// All returns the stored gallery in position order
func (r *GalleryRepository) All(ctx context.Context) (*gallery.Gallery, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity_id, display_name, embedding
		FROM gallery_entries
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}
	defer rows.Close()

	var entries []gallery.Entry
	for rows.Next() {
		var e gallery.Entry
		var vec pgvector.Vector
		if err := rows.Scan(&e.IdentityID, &e.DisplayName, &vec); err != nil {
			return nil, fmt.Errorf("scan gallery entry: %w", err)
		}
		e.Embedding = vec.Slice()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gallery entries: %w", err)
	}
	return gallery.New(entries)
}

// Count returns the number of stored entries
func (r *GalleryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM gallery_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count gallery entries: %w", err)
	}
	return n, nil
}

// Nearest returns up to k entries ordered by Euclidean distance (pgvector <->)
func (r *GalleryRepository) Nearest(ctx context.Context, embedding gallery.Embedding, k int) ([]gallery.Neighbor, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx, `
		SELECT position, identity_id, display_name, embedding, embedding <-> $1 AS distance
		FROM gallery_entries
		ORDER BY embedding <-> $1, position
		LIMIT $2
	`, vec, k)
	if err != nil {
		return nil, fmt.Errorf("query nearest entries: %w", err)
	}
	defer rows.Close()

	var out []gallery.Neighbor
	for rows.Next() {
		var n gallery.Neighbor
		var v pgvector.Vector
		if err := rows.Scan(&n.Index, &n.Entry.IdentityID, &n.Entry.DisplayName, &v, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan nearest entry: %w", err)
		}
		n.Entry.Embedding = v.Slice()
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearest entries: %w", err)
	}
	return out, nil
}
