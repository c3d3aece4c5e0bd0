package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterAndListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.RegisterDocument(ctx, 1, "notes.txt", "some notes")
	require.NoError(t, err)
	id2, err := s.RegisterDocument(ctx, 1, "report.txt", "")
	require.NoError(t, err)
	_, err = s.RegisterDocument(ctx, 2, "other.txt", "")
	require.NoError(t, err)

	assert.Greater(t, id2, id1)

	docs, err := s.ListDocuments(ctx, 1)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "notes.txt", docs[0].Title)
	assert.Equal(t, "some notes", docs[0].Description)
	assert.Equal(t, int64(1), docs[0].OwnerID)
	assert.False(t, docs[0].UploadedAt.IsZero())
}

func TestExcerptOrderIsInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docID, err := s.RegisterDocument(ctx, 7, "doc", "")
	require.NoError(t, err)

	texts := []string{"first chunk", "second chunk", "third chunk"}
	require.NoError(t, s.AppendExcerpts(ctx, docID, texts))

	excerpts, err := s.ListExcerpts(ctx, docID, 7)
	require.NoError(t, err)
	require.Len(t, excerpts, 3)
	for i, e := range excerpts {
		assert.Equal(t, texts[i], e.Text)
		assert.Equal(t, docID, e.DocumentID)
		if i > 0 {
			assert.Greater(t, e.ID, excerpts[i-1].ID)
		}
	}
}

func TestListExcerptsEnforcesOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docID, err := s.RegisterDocument(ctx, 1, "mine", "")
	require.NoError(t, err)
	require.NoError(t, s.AppendExcerpts(ctx, docID, []string{"secret"}))

	// Wrong owner sees nothing, same as a missing document.
	excerpts, err := s.ListExcerpts(ctx, docID, 2)
	require.NoError(t, err)
	assert.Empty(t, excerpts)

	excerpts, err = s.ListExcerpts(ctx, 9999, 1)
	require.NoError(t, err)
	assert.Empty(t, excerpts)
}

func TestDeleteDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docID, err := s.RegisterDocument(ctx, 1, "doomed", "")
	require.NoError(t, err)
	require.NoError(t, s.AppendExcerpts(ctx, docID, []string{"a", "b"}))

	// Wrong owner cannot delete.
	deleted, err := s.DeleteDocument(ctx, 2, docID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = s.DeleteDocument(ctx, 1, docID)
	require.NoError(t, err)
	assert.True(t, deleted)

	docs, err := s.ListDocuments(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, docs)

	excerpts, err := s.ListExcerpts(ctx, docID, 1)
	require.NoError(t, err)
	assert.Empty(t, excerpts)

	// Second delete reports nothing removed.
	deleted, err = s.DeleteDocument(ctx, 1, docID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAppendExcerptsEmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendExcerpts(context.Background(), 1, nil))
}

func TestErrorsCarryPersistenceClass(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.RegisterDocument(context.Background(), 1, "x", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
}
