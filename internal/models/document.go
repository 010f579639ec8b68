// Package models defines core data structures for documents, queries, and match results.
package models

import "time"

// Document is an ingested resume. The embedding lives in the vector index under the same ID;
// a stored Document is never updated, re-ingestion creates a new one.
type Document struct {
	ID        string    `json:"id" db:"id"`
	BaseName  string    `json:"base_name" db:"base_name"`
	RawText   string    `json:"raw_text" db:"raw_text"`
	Source    *Source   `json:"source,omitempty" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Source records where a document was ingested from when it came from a file on disk.
// The inbox watcher uses it to avoid re-ingesting an unchanged file.
type Source struct {
	Path  string `json:"path"`
	Mtime int64  `json:"mtime"`
	Size  int64  `json:"size"`
}

// IngestInput is the input for ingesting one document.
type IngestInput struct {
	BaseName string  `json:"base_name"`
	Text     string  `json:"text"`
	Source   *Source `json:"source,omitempty"`
}
