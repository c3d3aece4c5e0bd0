// Package sqlite persists document metadata and ordered excerpts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"docchat/internal/domain"
)

// Store is the SQLite-backed document and excerpt store.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id    INTEGER NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id);

CREATE TABLE IF NOT EXISTS excerpts (
	excerpt_id INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id     INTEGER NOT NULL REFERENCES documents(doc_id),
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_excerpts_doc ON excerpts(doc_id);
`

// New opens (or creates) the database at path. An empty path defaults to
// ~/.docchat/docchat.db. WAL mode and a busy timeout are set for concurrent
// readers.
func New(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: resolving home directory: %v", domain.ErrPersistence, err)
		}
		path = filepath.Join(home, ".docchat", "docchat.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", domain.ErrPersistence, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", domain.ErrPersistence, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %v", domain.ErrPersistence, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// RegisterDocument inserts the metadata row and returns the new document ID.
func (s *Store) RegisterDocument(ctx context.Context, ownerID int64, title, description string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (owner_id, title, description, created_at) VALUES (?, ?, ?, ?)`,
		ownerID, title, description, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: insert document: %v", domain.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: document id: %v", domain.ErrPersistence, err)
	}
	return id, nil
}

// ListDocuments returns the owner's documents, oldest first.
func (s *Store) ListDocuments(ctx context.Context, ownerID int64) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, owner_id, title, description, created_at
		 FROM documents WHERE owner_id = ? ORDER BY doc_id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Description, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", domain.ErrPersistence, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", domain.ErrPersistence, err)
	}
	return docs, nil
}

// AppendExcerpts stores the texts for a document in one transaction.
// Insertion order is preserved: AUTOINCREMENT assigns ascending IDs, which
// is the ordering reassembly depends on.
func (s *Store) AppendExcerpts(ctx context.Context, documentID int64, texts []string) error {
	if len(texts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin excerpts tx: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO excerpts (doc_id, body) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare excerpt insert: %v", domain.ErrPersistence, err)
	}
	defer stmt.Close()

	for _, text := range texts {
		if _, err := stmt.ExecContext(ctx, documentID, text); err != nil {
			return fmt.Errorf("%w: insert excerpt: %v", domain.ErrPersistence, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit excerpts: %v", domain.ErrPersistence, err)
	}
	return nil
}

// ListExcerpts returns the document's excerpts ordered by ascending ID.
// The join enforces ownership: a document belonging to someone else yields
// an empty slice, indistinguishable from "not found" by design.
func (s *Store) ListExcerpts(ctx context.Context, documentID, ownerID int64) ([]domain.Excerpt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.excerpt_id, e.doc_id, e.body
		 FROM excerpts e
		 JOIN documents d ON d.doc_id = e.doc_id
		 WHERE e.doc_id = ? AND d.owner_id = ?
		 ORDER BY e.excerpt_id ASC`, documentID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list excerpts: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var excerpts []domain.Excerpt
	for rows.Next() {
		var e domain.Excerpt
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Text); err != nil {
			return nil, fmt.Errorf("%w: scan excerpt: %v", domain.ErrPersistence, err)
		}
		excerpts = append(excerpts, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list excerpts: %v", domain.ErrPersistence, err)
	}
	return excerpts, nil
}

// DeleteDocument removes the excerpts and then the document row in one
// transaction. The returned bool reports whether the document row existed
// for that owner.
func (s *Store) DeleteDocument(ctx context.Context, ownerID, documentID int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin delete tx: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM excerpts WHERE doc_id IN
		 (SELECT doc_id FROM documents WHERE doc_id = ? AND owner_id = ?)`,
		documentID, ownerID); err != nil {
		return false, fmt.Errorf("%w: delete excerpts: %v", domain.ErrPersistence, err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE doc_id = ? AND owner_id = ?`, documentID, ownerID)
	if err != nil {
		return false, fmt.Errorf("%w: delete document: %v", domain.ErrPersistence, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete document: %v", domain.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit delete: %v", domain.ErrPersistence, err)
	}
	return affected > 0, nil
}
