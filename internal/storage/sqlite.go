package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists documents in a single SQLite table. Embeddings are
// stored as little-endian float32 blobs.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	document_id TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL,
	embedding   BLOB,
	category    TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL DEFAULT '',
	date_added  TEXT NOT NULL DEFAULT ''
)`

// NewSQLiteStore opens (creating if needed) the knowledge base database at
// path. Parent directories are created with owner-only permissions.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating %s table: %w", TableName, err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Insert(ctx context.Context, doc *Document) error {
	dateAdded := ""
	if !doc.DateAdded.IsZero() {
		dateAdded = doc.DateAdded.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+TableName+` (document_id, title, content, embedding, category, source, date_added)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, encodeEmbedding(doc.Embedding), doc.Category, doc.Source, dateAdded)
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, title, content, embedding, category, source, date_added
		 FROM `+TableName+` WHERE document_id = ?`, id)

	doc, err := scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", id, err)
	}
	return doc, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Document, error) {
	// rowid order keeps ranking tie-breaks stable across queries.
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, title, content, embedding, category, source, date_added
		 FROM `+TableName+` ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fields DocumentUpdate) error {
	var sets []string
	var args []any

	if fields.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *fields.Title)
	}
	if fields.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *fields.Content)
	}
	if fields.Embedding != nil {
		sets = append(sets, "embedding = ?")
		args = append(args, encodeEmbedding(fields.Embedding))
	}
	if fields.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *fields.Category)
	}
	if fields.Source != nil {
		sets = append(sets, "source = ?")
		args = append(args, *fields.Source)
	}
	if len(sets) == 0 {
		// Nothing to change; still report missing rows.
		_, err := s.Get(ctx, id)
		return err
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+TableName+` SET `+strings.Join(sets, ", ")+` WHERE document_id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+TableName+` WHERE document_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(scan func(dest ...any) error) (*Document, error) {
	var doc Document
	var blob []byte
	var dateAdded string

	if err := scan(&doc.ID, &doc.Title, &doc.Content, &blob, &doc.Category, &doc.Source, &dateAdded); err != nil {
		return nil, err
	}
	doc.Embedding = decodeEmbedding(blob)
	if dateAdded != "" {
		if t, err := time.Parse(time.RFC3339, dateAdded); err == nil {
			doc.DateAdded = t
		}
	}
	return &doc, nil
}

// encodeEmbedding packs a vector as little-endian float32 bytes. A nil or
// empty vector encodes as nil so "no embedding" round-trips.
func encodeEmbedding(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(blob []byte) []float32 {
	if len(blob) < 4 {
		return nil
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return out
}
