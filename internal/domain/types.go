package domain

import "time"

// Document is the metadata row for one uploaded document.
// Identity is the (OwnerID, ID) pair; excerpts are stored separately.
type Document struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description string
	UploadedAt  time.Time
}

// Excerpt is one persisted chunk of a document. Ascending ID within a
// document is the chunk emission order and must be preserved: reassembly
// relies on it to strip the overlap between neighbouring excerpts.
type Excerpt struct {
	ID         int64
	DocumentID int64
	Text       string
}

// IndexPoint is the unit handed to the vector index: an excerpt plus the
// document it belongs to, used as delete filter later.
type IndexPoint struct {
	ExcerptID  int64
	DocumentID int64
	Text       string
}

// RetrievedExcerpt is a query hit: an excerpt with its similarity-search
// distance (lower is closer). Produced per query, never persisted.
type RetrievedExcerpt struct {
	ExcerptID int64
	Distance  float64
	Text      string
}

// IngestResult reports a completed ingestion. Warnings carry non-fatal
// secondary failures (typically: the document was stored but could not be
// indexed), so callers can surface or ignore them.
type IngestResult struct {
	DocumentID int64
	Chunks     []string
	Warnings   []string
}

// DeleteResult reports a document deletion. Deleted reflects the relational
// delete only; a failed vector cleanup shows up as a warning.
type DeleteResult struct {
	Deleted  bool
	Warnings []string
}

// Answer is the outcome of a question against a user's documents.
// Found is false when retrieval produced nothing above the relevance
// threshold, which is a valid result and not an error.
type Answer struct {
	Found    bool
	Text     string
	Excerpts []RetrievedExcerpt
}
