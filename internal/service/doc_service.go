// Package service orchestrates the document ingestion, retrieval,
// reassembly and deletion pipelines.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docchat/internal/domain"
)

// Config tunes the pipelines. Zero values fall back to the defaults the
// system was tuned with.
type Config struct {
	// DistanceThreshold is the maximum similarity-search distance for a
	// retrieved excerpt to count as relevant. The boundary is inclusive.
	DistanceThreshold float64
	// TopK is how many candidates to request from the index per query.
	TopK int
	// SummaryMaxSentences bounds the auto-generated description.
	SummaryMaxSentences int
}

const (
	defaultDistanceThreshold = 1.5
	defaultTopK              = 5
	defaultSummarySentences  = 3
)

// DocService is the application core behind the HTTP layer: it owns the
// chunk -> persist -> index pipeline and its query-side counterpart.
type DocService struct {
	chunker    domain.Chunker
	store      domain.DocumentStore
	index      domain.VectorIndex
	extractor  domain.Extractor
	completer  domain.Completer
	summarizer domain.Summarizer
	cfg        Config
	locks      *ownerLocks
	log        *slog.Logger
}

// New assembles the service. summarizer may be nil (descriptions are then
// left as given); logger nil falls back to slog.Default().
func New(
	chunker domain.Chunker,
	store domain.DocumentStore,
	index domain.VectorIndex,
	extractor domain.Extractor,
	completer domain.Completer,
	summarizer domain.Summarizer,
	cfg Config,
	log *slog.Logger,
) *DocService {
	if cfg.DistanceThreshold == 0 {
		cfg.DistanceThreshold = defaultDistanceThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.SummaryMaxSentences <= 0 {
		cfg.SummaryMaxSentences = defaultSummarySentences
	}
	if log == nil {
		log = slog.Default()
	}
	return &DocService{
		chunker:    chunker,
		store:      store,
		index:      index,
		extractor:  extractor,
		completer:  completer,
		summarizer: summarizer,
		cfg:        cfg,
		locks:      newOwnerLocks(),
		log:        log,
	}
}

// Upload is the file-facing ingestion entry point: extract text, then run
// the ingestion pipeline. An empty title falls back to the filename.
func (s *DocService) Upload(ctx context.Context, ownerID int64, filename string, data []byte, title, description string) (domain.IngestResult, error) {
	text, err := s.extractor.Extract(filename, data)
	if err != nil {
		return domain.IngestResult{}, err
	}
	if strings.TrimSpace(title) == "" {
		title = filename
	}
	return s.Ingest(ctx, ownerID, text, title, description)
}

// Ingest chunks rawText, persists the document and its excerpts, and
// indexes the excerpts in the owner's vector collection.
//
// Persistence failures abort the ingestion; an indexing failure after a
// successful persist does not. In that case the document exists but is not
// searchable, which is reported as a warning on the result so the caller
// can retry indexing without re-chunking.
func (s *DocService) Ingest(ctx context.Context, ownerID int64, rawText, title, description string) (domain.IngestResult, error) {
	chunks := s.chunker.Chunk(rawText)
	if len(chunks) == 0 {
		return domain.IngestResult{}, domain.ErrEmptyDocument
	}

	description = strings.TrimSpace(description)
	if description == "" && s.summarizer != nil {
		summary, err := s.summarizer.Summarize(rawText, s.cfg.SummaryMaxSentences)
		if err != nil {
			s.log.Warn("description summary failed", "owner", ownerID, "err", err)
		} else {
			description = summary
		}
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	docID, err := s.store.RegisterDocument(ctx, ownerID, title, description)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("registering document: %w", err)
	}
	if err := s.store.AppendExcerpts(ctx, docID, chunks); err != nil {
		return domain.IngestResult{}, fmt.Errorf("storing excerpts for document %d: %w", docID, err)
	}

	res := domain.IngestResult{DocumentID: docID, Chunks: chunks}

	// Read the excerpts back so the index sees the store-assigned IDs in
	// ascending order.
	excerpts, err := s.store.ListExcerpts(ctx, docID, ownerID)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("reading back excerpts for document %d: %w", docID, err)
	}
	points := make([]domain.IndexPoint, len(excerpts))
	for i, e := range excerpts {
		points[i] = domain.IndexPoint{ExcerptID: e.ID, DocumentID: docID, Text: e.Text}
	}
	if err := s.index.Add(ctx, ownerID, points); err != nil {
		warning := fmt.Sprintf("document %d stored but not indexed: %v", docID, err)
		s.log.Warn("indexing failed, document is not searchable", "owner", ownerID, "doc", docID, "err", err)
		res.Warnings = append(res.Warnings, warning)
	}
	return res, nil
}

// Retrieve returns the owner's excerpts nearest to the query, nearest
// first, keeping only those within the distance threshold. An owner who
// never ingested anything gets an empty result, not an error.
func (s *DocService) Retrieve(ctx context.Context, ownerID int64, query string) ([]domain.RetrievedExcerpt, error) {
	hits, err := s.index.Query(ctx, ownerID, query, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	// Hits arrive ordered by the index; filtering keeps that order.
	relevant := hits[:0]
	for _, h := range hits {
		if h.Distance <= s.cfg.DistanceThreshold {
			relevant = append(relevant, h)
		}
	}
	return relevant, nil
}

// Ask retrieves context for the query and forwards both to the completion
// backend. No relevant excerpts yields Answer{Found: false}, which is a
// normal outcome, not an error.
func (s *DocService) Ask(ctx context.Context, ownerID int64, query string) (domain.Answer, error) {
	excerpts, err := s.Retrieve(ctx, ownerID, query)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(excerpts) == 0 {
		return domain.Answer{Found: false}, nil
	}
	texts := make([]string, len(excerpts))
	for i, e := range excerpts {
		texts[i] = e.Text
	}
	answer, err := s.completer.Complete(ctx, query, texts)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("completing answer: %w", err)
	}
	return domain.Answer{Found: true, Text: answer, Excerpts: excerpts}, nil
}

// Reassemble reconstructs the document text from its stored excerpts.
// Consecutive excerpts share the chunker's overlap, so every excerpt after
// the first drops its leading overlap sentences; what remains concatenates
// to the original sentence sequence. An unknown or foreign document yields
// an empty string.
func (s *DocService) Reassemble(ctx context.Context, ownerID, documentID int64) (string, error) {
	excerpts, err := s.store.ListExcerpts(ctx, documentID, ownerID)
	if err != nil {
		return "", fmt.Errorf("listing excerpts: %w", err)
	}
	overlap := s.chunker.Overlap()
	var pieces []string
	for i, e := range excerpts {
		sents := s.chunker.Sentences(e.Text)
		if i > 0 {
			if overlap >= len(sents) {
				continue
			}
			sents = sents[overlap:]
		}
		if len(sents) > 0 {
			pieces = append(pieces, strings.Join(sents, " "))
		}
	}
	return strings.Join(pieces, " "), nil
}

// Documents lists the owner's documents.
func (s *DocService) Documents(ctx context.Context, ownerID int64) ([]domain.Document, error) {
	return s.store.ListDocuments(ctx, ownerID)
}

// Delete removes the document's rows and its vector entries. The relational
// delete governs the Deleted flag; a failing vector cleanup is logged and
// reported as a warning, never as an error.
func (s *DocService) Delete(ctx context.Context, ownerID, documentID int64) (domain.DeleteResult, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	deleted, err := s.store.DeleteDocument(ctx, ownerID, documentID)
	if err != nil {
		return domain.DeleteResult{}, fmt.Errorf("deleting document %d: %w", documentID, err)
	}
	res := domain.DeleteResult{Deleted: deleted}
	if err := s.index.DeleteByDocument(ctx, ownerID, documentID); err != nil {
		warning := fmt.Sprintf("vector entries for document %d not removed: %v", documentID, err)
		s.log.Warn("vector cleanup failed", "owner", ownerID, "doc", documentID, "err", err)
		res.Warnings = append(res.Warnings, warning)
	}
	return res, nil
}
