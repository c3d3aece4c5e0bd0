package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/chunker"
	"docchat/internal/domain"
	"docchat/internal/store/sqlite"
	"docchat/internal/vectorstore"
	"docchat/internal/vectorstore/memory"
)

// hashEmbedder is a deterministic stand-in for a real embedding model:
// identical texts embed to identical vectors (distance 0), different texts
// land apart.
type hashEmbedder struct{}

func (hashEmbedder) Name() string { return "hash" }

func (hashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, 16)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[int(h.Sum32()%16)]++
	}
	return vec, nil
}

type fakeCompleter struct {
	answer      string
	err         error
	called      bool
	gotQuery    string
	gotExcerpts []string
}

func (f *fakeCompleter) Complete(_ context.Context, query string, excerpts []string) (string, error) {
	f.called = true
	f.gotQuery = query
	f.gotExcerpts = excerpts
	return f.answer, f.err
}

type fakeSummarizer struct{ out string }

func (f fakeSummarizer) Summarize(string, int) (string, error) { return f.out, nil }

// fakeIndex lets tests inject index failures and canned query results.
type fakeIndex struct {
	addErr   error
	delErr   error
	queryErr error
	hits     []domain.RetrievedExcerpt
	added    []domain.IndexPoint
}

func (f *fakeIndex) Add(_ context.Context, _ int64, points []domain.IndexPoint) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, points...)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ int64, _ string, _ int) ([]domain.RetrievedExcerpt, error) {
	return f.hits, f.queryErr
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, _, _ int64) error { return f.delErr }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newChunker(t *testing.T) *chunker.SentenceChunker {
	t.Helper()
	c, err := chunker.NewSentenceChunker(10, 3)
	require.NoError(t, err)
	return c
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "docchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestService wires a real chunker, SQLite store and in-memory vector
// index behind the service.
func newTestService(t *testing.T) (*DocService, *fakeCompleter) {
	t.Helper()
	completer := &fakeCompleter{answer: "canned answer"}
	index := vectorstore.NewIndex(memory.NewStorage(), hashEmbedder{})
	svc := New(newChunker(t), newStore(t), index, nil, completer, nil, Config{}, discardLogger())
	return svc, completer
}

func numberedText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Sentence number %d carries unique words here. ", i)
	}
	return strings.TrimSpace(b.String())
}

func TestIngestPersistsAndIndexes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, 1, numberedText(25), "numbers", "counting practice")
	require.NoError(t, err)
	assert.Greater(t, res.DocumentID, int64(0))
	assert.Len(t, res.Chunks, 4)
	assert.Empty(t, res.Warnings)

	docs, err := svc.Documents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "numbers", docs[0].Title)
	assert.Equal(t, "counting practice", docs[0].Description)

	// Querying with a chunk's exact text must find it at distance zero.
	hits, err := svc.Retrieve(ctx, 1, res.Chunks[0])
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, res.Chunks[0], hits[0].Text)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
}

func TestIngestTwoSentencesYieldsSingleChunk(t *testing.T) {
	svc, _ := newTestService(t)

	text := "  The cat sat on the mat.   It purred loudly.  "
	res, err := svc.Ingest(context.Background(), 1, text, "cat", "d")
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "The cat sat on the mat. It purred loudly.", res.Chunks[0])
}

func TestIngestEmptyDocument(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Ingest(context.Background(), 1, "   \n ", "empty", "")
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)

	docs, err := svc.Documents(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestAutoFillsDescription(t *testing.T) {
	index := vectorstore.NewIndex(memory.NewStorage(), hashEmbedder{})
	svc := New(newChunker(t), newStore(t), index, nil, &fakeCompleter{}, fakeSummarizer{out: "auto summary"}, Config{}, discardLogger())
	ctx := context.Background()

	_, err := svc.Ingest(ctx, 1, "One sentence here. Another one there.", "doc", "  ")
	require.NoError(t, err)

	docs, err := svc.Documents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "auto summary", docs[0].Description)
}

func TestIngestIndexFailureIsAWarning(t *testing.T) {
	index := &fakeIndex{addErr: fmt.Errorf("%w: connection refused", domain.ErrIndex)}
	svc := New(newChunker(t), newStore(t), index, nil, &fakeCompleter{}, nil, Config{}, discardLogger())
	ctx := context.Background()

	res, err := svc.Ingest(ctx, 1, numberedText(5), "doc", "d")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "not indexed")

	// The document survived: ingested but unsearchable.
	docs, err := svc.Documents(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestRetrieveUnknownOwnerIsEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	hits, err := svc.Retrieve(context.Background(), 404, "anything at all")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetrieveThresholdBoundary(t *testing.T) {
	const eps = 1e-9
	index := &fakeIndex{hits: []domain.RetrievedExcerpt{
		{ExcerptID: 1, Distance: 0.2, Text: "closest"},
		{ExcerptID: 2, Distance: 1.5, Text: "on the line"},
		{ExcerptID: 3, Distance: 1.5 + eps, Text: "just outside"},
	}}
	svc := New(newChunker(t), newStore(t), index, nil, &fakeCompleter{}, nil, Config{DistanceThreshold: 1.5}, discardLogger())

	hits, err := svc.Retrieve(context.Background(), 1, "q")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].ExcerptID)
	assert.Equal(t, int64(2), hits[1].ExcerptID)
}

func TestAskNoRelevantExcerpts(t *testing.T) {
	svc, completer := newTestService(t)

	ans, err := svc.Ask(context.Background(), 7, "is there anything?")
	require.NoError(t, err)
	assert.False(t, ans.Found)
	assert.False(t, completer.called, "completer must not run without context")
}

func TestAskForwardsContextToCompleter(t *testing.T) {
	svc, completer := newTestService(t)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, 1, numberedText(5), "doc", "d")
	require.NoError(t, err)

	ans, err := svc.Ask(ctx, 1, res.Chunks[0])
	require.NoError(t, err)
	assert.True(t, ans.Found)
	assert.Equal(t, "canned answer", ans.Text)
	assert.NotEmpty(t, ans.Excerpts)
	assert.True(t, completer.called)
	assert.Equal(t, res.Chunks[0], completer.gotQuery)
	assert.Equal(t, ans.Excerpts[0].Text, completer.gotExcerpts[0])
}

func TestReassembleRestoresSentenceSequence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	original := numberedText(25)
	res, err := svc.Ingest(ctx, 1, original, "doc", "d")
	require.NoError(t, err)

	text, err := svc.Reassemble(ctx, 1, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, original, text)

	// Idempotent: a second pass yields the same text.
	again, err := svc.Reassemble(ctx, 1, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, text, again)
}

func TestReassembleShortTailChunk(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// 8 sentences with window 10/overlap 3 emit a full chunk plus a
	// one-sentence tail that is entirely overlap.
	original := numberedText(8)
	res, err := svc.Ingest(ctx, 1, original, "doc", "d")
	require.NoError(t, err)

	text, err := svc.Reassemble(ctx, 1, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, original, text)
}

func TestReassembleUnknownOrForeignDocument(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, 1, numberedText(5), "doc", "d")
	require.NoError(t, err)

	text, err := svc.Reassemble(ctx, 2, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "", text)

	text, err = svc.Reassemble(ctx, 1, 9999)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestConcurrentIngestDeleteConsistency(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Ingest and delete race for one owner; the per-owner lock must keep
	// every pairing consistent so the end state is fully empty.
	const n = 8
	ids := make(chan int64, n)
	var ingesters sync.WaitGroup
	for i := 0; i < n; i++ {
		ingesters.Add(1)
		go func(i int) {
			defer ingesters.Done()
			res, err := svc.Ingest(ctx, 1, numberedText(5), fmt.Sprintf("doc %d", i), "d")
			assert.NoError(t, err)
			assert.Empty(t, res.Warnings)
			ids <- res.DocumentID
		}(i)
	}
	go func() {
		ingesters.Wait()
		close(ids)
	}()

	var deleters sync.WaitGroup
	for id := range ids {
		deleters.Add(1)
		go func(id int64) {
			defer deleters.Done()
			del, err := svc.Delete(ctx, 1, id)
			assert.NoError(t, err)
			assert.True(t, del.Deleted)
			assert.Empty(t, del.Warnings)
		}(id)
	}
	deleters.Wait()

	docs, err := svc.Documents(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, docs)

	hits, err := svc.Retrieve(ctx, 1, numberedText(5))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteRemovesDocumentAndVectors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, 1, numberedText(5), "doc", "d")
	require.NoError(t, err)
	query := res.Chunks[0]

	hits, err := svc.Retrieve(ctx, 1, query)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	del, err := svc.Delete(ctx, 1, res.DocumentID)
	require.NoError(t, err)
	assert.True(t, del.Deleted)
	assert.Empty(t, del.Warnings)

	docs, err := svc.Documents(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, docs)

	hits, err = svc.Retrieve(ctx, 1, query)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteUnknownDocument(t *testing.T) {
	svc, _ := newTestService(t)

	del, err := svc.Delete(context.Background(), 1, 12345)
	require.NoError(t, err)
	assert.False(t, del.Deleted)
}

func TestDeleteVectorFailureIsAWarning(t *testing.T) {
	st := newStore(t)
	index := &fakeIndex{delErr: fmt.Errorf("%w: collection gone", domain.ErrIndex)}
	svc := New(newChunker(t), st, index, nil, &fakeCompleter{}, nil, Config{}, discardLogger())
	ctx := context.Background()

	res, err := svc.Ingest(ctx, 1, numberedText(5), "doc", "d")
	require.NoError(t, err)

	del, err := svc.Delete(ctx, 1, res.DocumentID)
	require.NoError(t, err)
	assert.True(t, del.Deleted, "relational delete governs the result")
	require.Len(t, del.Warnings, 1)
	assert.Contains(t, del.Warnings[0], "not removed")
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(string, []byte) (string, error) { return f.text, f.err }

func TestUploadExtractionFailureAbortsEarly(t *testing.T) {
	st := newStore(t)
	index := vectorstore.NewIndex(memory.NewStorage(), hashEmbedder{})
	extractor := fakeExtractor{err: fmt.Errorf("%w: garbled file", domain.ErrExtraction)}
	svc := New(newChunker(t), st, index, extractor, &fakeCompleter{}, nil, Config{}, discardLogger())
	ctx := context.Background()

	_, err := svc.Upload(ctx, 1, "broken.bin", []byte{0x00}, "", "")
	assert.True(t, errors.Is(err, domain.ErrExtraction))

	docs, err := svc.Documents(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, docs, "nothing registered when extraction fails")
}

func TestUploadTitleFallsBackToFilename(t *testing.T) {
	st := newStore(t)
	index := vectorstore.NewIndex(memory.NewStorage(), hashEmbedder{})
	extractor := fakeExtractor{text: "A sentence. Another sentence."}
	svc := New(newChunker(t), st, index, extractor, &fakeCompleter{}, nil, Config{}, discardLogger())
	ctx := context.Background()

	_, err := svc.Upload(ctx, 1, "notes.txt", []byte("ignored"), "   ", "d")
	require.NoError(t, err)

	docs, err := svc.Documents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.txt", docs[0].Title)
}
