package domain

import "errors"

// Error classes for the ingestion and retrieval pipelines. Adapters wrap
// these so callers can classify with errors.Is without depending on the
// concrete backend.
var (
	// ErrExtraction: raw text could not be obtained from the uploaded
	// file. Ingestion aborts before chunking.
	ErrExtraction = errors.New("text extraction failed")

	// ErrPersistence: the document/excerpt store is unreachable or
	// rejected a write. Aborts the operation.
	ErrPersistence = errors.New("document store failure")

	// ErrIndex: the vector index is unreachable. On secondary paths
	// (indexing after a successful persist, vector cleanup on delete)
	// this is downgraded to a warning.
	ErrIndex = errors.New("vector index failure")

	// ErrEmptyDocument: the uploaded text contains no sentences; nothing
	// was registered.
	ErrEmptyDocument = errors.New("document contains no sentences")
)
