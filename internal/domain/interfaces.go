package domain

import "context"

// Chunker splits raw document text into overlapping sentence windows.
type Chunker interface {
	// Chunk returns the chunk texts in emission order. Empty input yields
	// no chunks.
	Chunk(text string) []string
	// Sentences exposes the underlying sentence segmentation so that
	// reassembly strips the same boundaries the chunker produced.
	Sentences(text string) []string
	// Overlap is the number of sentences shared between consecutive chunks.
	Overlap() int
}

// DocumentStore persists document metadata and ordered excerpts.
type DocumentStore interface {
	RegisterDocument(ctx context.Context, ownerID int64, title, description string) (int64, error)
	ListDocuments(ctx context.Context, ownerID int64) ([]Document, error)
	// AppendExcerpts stores texts in the given order; assigned excerpt IDs
	// are monotonically increasing in that order.
	AppendExcerpts(ctx context.Context, documentID int64, texts []string) error
	// ListExcerpts returns the document's excerpts ordered by ascending ID.
	// Ownership is enforced: a document not owned by ownerID yields an
	// empty slice, not an error.
	ListExcerpts(ctx context.Context, documentID, ownerID int64) ([]Excerpt, error)
	// DeleteDocument removes the excerpts and the document row. The bool
	// reports whether the document row existed for that owner.
	DeleteDocument(ctx context.Context, ownerID, documentID int64) (bool, error)
	Close() error
}

// VectorIndex is the per-owner similarity index over excerpts.
type VectorIndex interface {
	// Add indexes the points in the owner's collection, creating it on
	// first use.
	Add(ctx context.Context, ownerID int64, points []IndexPoint) error
	// Query returns up to limit hits ranked by ascending distance. An
	// owner who never ingested anything gets an empty result, not an
	// error.
	Query(ctx context.Context, ownerID int64, text string, limit int) ([]RetrievedExcerpt, error)
	// DeleteByDocument drops every point tagged with documentID from the
	// owner's collection. Missing collection is a no-op.
	DeleteByDocument(ctx context.Context, ownerID, documentID int64) error
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Completer is the opaque language-model backend: it answers a query given
// supporting excerpt texts.
type Completer interface {
	Complete(ctx context.Context, query string, excerpts []string) (string, error)
}

// Extractor obtains raw text from an uploaded file.
type Extractor interface {
	Extract(filename string, data []byte) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
