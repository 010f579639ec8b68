// Package storage persists ingested resumes (raw text and source metadata) alongside the
// vector index. Search never reads it; it backs document lookup, listings and inbox sync.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/resumatch/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Storage defines document persistence operations.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// DeleteDocument exists to roll back a failed ingest; documents are otherwise immutable.
	DeleteDocument(ctx context.Context, id string) error
	// ListDocuments returns documents in ingestion order. limit <= 0 means no limit.
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)
	// FindBySource returns the most recent document ingested from the given file state.
	FindBySource(ctx context.Context, path string, mtime, size int64) (*models.Document, error)

	Close() error
}
