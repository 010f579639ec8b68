package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/resumatch/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		base_name TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		source_path TEXT,
		source_mtime INTEGER,
		source_size INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_path, source_mtime, source_size);
	`
	_, err := db.Exec(schema)
	return err
}

const selectDocument = `SELECT id, base_name, raw_text, source_path, source_mtime, source_size, created_at FROM documents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc   models.Document
		path  sql.NullString
		mtime sql.NullInt64
		size  sql.NullInt64
	)
	if err := row.Scan(&doc.ID, &doc.BaseName, &doc.RawText, &path, &mtime, &size, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if path.Valid {
		doc.Source = &models.Source{Path: path.String, Mtime: mtime.Int64, Size: size.Int64}
	}
	return &doc, nil
}

// CreateDocument inserts a document and sets its CreatedAt.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	doc.CreatedAt = time.Now().UTC()

	var path sql.NullString
	var mtime, size sql.NullInt64
	if doc.Source != nil {
		path = sql.NullString{String: doc.Source.Path, Valid: true}
		mtime = sql.NullInt64{Int64: doc.Source.Mtime, Valid: true}
		size = sql.NullInt64{Int64: doc.Source.Size, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, base_name, raw_text, source_path, source_mtime, source_size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.BaseName, doc.RawText, path, mtime, size, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns a document by ID, or ErrNotFound.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx, selectDocument+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// ListDocuments returns documents in insertion order with offset and limit.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		selectDocument+` ORDER BY rowid LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// FindBySource returns the latest document ingested from path with the given mtime and size.
func (s *SQLiteStorage) FindBySource(ctx context.Context, path string, mtime, size int64) (*models.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx,
		selectDocument+` WHERE source_path = ? AND source_mtime = ? AND source_size = ? ORDER BY rowid DESC LIMIT 1`,
		path, mtime, size,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: source %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

var _ Storage = (*SQLiteStorage)(nil)
