package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	source_path TEXT NOT NULL DEFAULT '',
	num_lines   INTEGER NOT NULL DEFAULT 0,
	file_size   INTEGER NOT NULL DEFAULT 0,
	file_type   TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS document_tags (
	doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	tag    TEXT NOT NULL,
	PRIMARY KEY (doc_id, tag)
);
CREATE INDEX IF NOT EXISTS idx_document_tags_tag ON document_tags(tag);

CREATE TABLE IF NOT EXISTS toc_entries (
	doc_id     TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	title      TEXT NOT NULL,
	level      INTEGER NOT NULL,
	start_line INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	PRIMARY KEY (doc_id, position)
);
`

// Store is the SQLite-backed document registry.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the registry database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}

	// Cascading deletes from documents to tags and TOC entries.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create registry schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add registers a document with its tags and TOC entries in one
// transaction.
func (s *Store) Add(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, name, source_path, num_lines, file_size, file_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, doc.SourcePath, doc.NumLines, doc.FileSize, doc.FileType,
		doc.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	if err := insertTags(ctx, tx, doc.ID, doc.Tags); err != nil {
		return err
	}

	for i, e := range doc.TOC {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO toc_entries (doc_id, position, title, level, start_line, end_line)
			VALUES (?, ?, ?, ?, ?, ?)`,
			doc.ID, i, e.Title, e.Level, e.StartLine, e.EndLine)
		if err != nil {
			return fmt.Errorf("insert toc entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertTags(ctx context.Context, tx *sql.Tx, docID string, tags []string) error {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO document_tags (doc_id, tag) VALUES (?, ?)`, docID, tag)
		if err != nil {
			return fmt.Errorf("insert tag: %w", err)
		}
	}
	return nil
}

// Get returns the document, or nil when the id is unknown.
func (s *Store) Get(ctx context.Context, docID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, source_path, num_lines, file_size, file_type, created_at
		FROM documents WHERE id = ?`, docID)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}

	if err := s.fill(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Remove deletes a document and its tags and TOC entries. Removing an
// unknown id is a no-op.
func (s *Store) Remove(ctx context.Context, docID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// ListAll returns every registered document, oldest first.
func (s *Store) ListAll(ctx context.Context) ([]*Document, error) {
	return s.list(ctx, `
		SELECT id, name, source_path, num_lines, file_size, file_type, created_at
		FROM documents ORDER BY created_at, id`)
}

// ListByTags returns documents carrying any of the given tags (OR
// semantics). An empty tag list returns an empty result.
func (s *Store) ListByTags(ctx context.Context, tags []string) ([]*Document, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(tags))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(tags))
	for i, t := range tags {
		args[i] = t
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT d.id, d.name, d.source_path, d.num_lines, d.file_size, d.file_type, d.created_at
		FROM documents d
		JOIN document_tags t ON t.doc_id = d.id
		WHERE t.tag IN (%s)
		ORDER BY d.created_at, d.id`, placeholders)

	return s.list(ctx, query, args...)
}

// ListTags returns every distinct tag in use, sorted.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT tag FROM document_tags ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// AddTags attaches tags to an existing document. Duplicate tags are
// ignored.
func (s *Store) AddTags(ctx context.Context, docID string, tags []string) error {
	if err := s.requireDocument(ctx, docID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertTags(ctx, tx, docID, tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RemoveTags detaches tags from a document. Removing a tag the document
// does not carry is a no-op.
func (s *Store) RemoveTags(ctx context.Context, docID string, tags []string) error {
	if err := s.requireDocument(ctx, docID); err != nil {
		return err
	}

	for _, tag := range tags {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM document_tags WHERE doc_id = ? AND tag = ?`, docID, tag)
		if err != nil {
			return fmt.Errorf("delete tag: %w", err)
		}
	}
	return nil
}

func (s *Store) requireDocument(ctx context.Context, docID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE id = ?`, docID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	if err != nil {
		return fmt.Errorf("query document: %w", err)
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, doc := range docs {
		if err := s.fill(ctx, doc); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var doc Document
	var createdAt string
	err := row.Scan(&doc.ID, &doc.Name, &doc.SourcePath, &doc.NumLines,
		&doc.FileSize, &doc.FileType, &createdAt)
	if err != nil {
		return nil, err
	}
	if ts, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		doc.CreatedAt = ts
	}
	return &doc, nil
}

// fill loads the tags and TOC entries for a scanned document.
func (s *Store) fill(ctx context.Context, doc *Document) error {
	tagRows, err := s.db.QueryContext(ctx,
		`SELECT tag FROM document_tags WHERE doc_id = ? ORDER BY tag`, doc.ID)
	if err != nil {
		return fmt.Errorf("query document tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		doc.Tags = append(doc.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return err
	}

	tocRows, err := s.db.QueryContext(ctx, `
		SELECT title, level, start_line, end_line
		FROM toc_entries WHERE doc_id = ? ORDER BY position`, doc.ID)
	if err != nil {
		return fmt.Errorf("query toc entries: %w", err)
	}
	defer tocRows.Close()

	for tocRows.Next() {
		var e TOCEntry
		if err := tocRows.Scan(&e.Title, &e.Level, &e.StartLine, &e.EndLine); err != nil {
			return fmt.Errorf("scan toc entry: %w", err)
		}
		doc.TOC = append(doc.TOC, e)
	}
	return tocRows.Err()
}
