// Package vectorstore provides the per-owner similarity index over excerpts.
package vectorstore

import "context"

// Point is one indexed excerpt: its vector plus the payload needed to
// return hits and to delete by document later.
type Point struct {
	ID         int64
	DocumentID int64
	Text       string
	Vector     []float64
}

// Hit is one similarity search result, ranked by ascending Distance.
type Hit struct {
	ID       int64
	Distance float64
	Text     string
}

// Storage is a vector store backend holding named collections.
type Storage interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, name string, dimension int) error
	// Upsert writes points into an existing collection.
	Upsert(ctx context.Context, name string, points []Point) error
	// Search returns up to limit hits ordered by ascending distance.
	// A collection that was never created yields an empty result, not an
	// error.
	Search(ctx context.Context, name string, vector []float64, limit int) ([]Hit, error)
	// DeleteByDocument removes every point tagged with documentID.
	// Missing collection is a no-op.
	DeleteByDocument(ctx context.Context, name string, documentID int64) error
}
