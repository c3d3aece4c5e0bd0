package vectorstore

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"docchat/internal/domain"
)

// embedConcurrency bounds the fan-out when embedding a batch of chunks.
const embedConcurrency = 4

// CollectionName returns the per-owner collection name. One collection per
// owner isolates each user's embeddings from everyone else's.
func CollectionName(ownerID int64) string {
	return fmt.Sprintf("owner-%d", ownerID)
}

// Index pairs an embedder with a storage backend and owns the per-owner
// collection naming. It implements domain.VectorIndex.
type Index struct {
	storage  Storage
	embedder domain.Embedder
}

// NewIndex creates a vector index over the given backend and embedder.
func NewIndex(storage Storage, embedder domain.Embedder) *Index {
	return &Index{storage: storage, embedder: embedder}
}

// Add embeds the point texts and upserts them into the owner's collection,
// creating the collection on first use. The collection dimension is taken
// from the embedder's output.
func (ix *Index) Add(ctx context.Context, ownerID int64, points []domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}
	vectors := make([][]float64, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i := range points {
		g.Go(func() error {
			vec, err := ix.embedder.Embed(gctx, points[i].Text)
			if err != nil {
				return fmt.Errorf("embed excerpt %d: %w", points[i].ExcerptID, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndex, err)
	}

	name := CollectionName(ownerID)
	if err := ix.storage.EnsureCollection(ctx, name, len(vectors[0])); err != nil {
		return fmt.Errorf("%w: ensure collection %s: %v", domain.ErrIndex, name, err)
	}
	stored := make([]Point, len(points))
	for i, p := range points {
		stored[i] = Point{ID: p.ExcerptID, DocumentID: p.DocumentID, Text: p.Text, Vector: vectors[i]}
	}
	if err := ix.storage.Upsert(ctx, name, stored); err != nil {
		return fmt.Errorf("%w: upsert into %s: %v", domain.ErrIndex, name, err)
	}
	return nil
}

// Query embeds the text and searches the owner's collection. An owner who
// never ingested anything gets an empty result.
func (ix *Index) Query(ctx context.Context, ownerID int64, text string, limit int) ([]domain.RetrievedExcerpt, error) {
	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrIndex, err)
	}
	hits, err := ix.storage.Search(ctx, CollectionName(ownerID), vec, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", domain.ErrIndex, err)
	}
	out := make([]domain.RetrievedExcerpt, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.RetrievedExcerpt{ExcerptID: h.ID, Distance: h.Distance, Text: h.Text})
	}
	return out, nil
}

// DeleteByDocument drops the document's points from the owner's collection.
func (ix *Index) DeleteByDocument(ctx context.Context, ownerID, documentID int64) error {
	if err := ix.storage.DeleteByDocument(ctx, CollectionName(ownerID), documentID); err != nil {
		return fmt.Errorf("%w: delete document %d: %v", domain.ErrIndex, documentID, err)
	}
	return nil
}
