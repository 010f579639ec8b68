// Package indexer ingests resumes: it encodes the text, assigns an identity, stores the raw
// text and upserts the embedding into the vector index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/resumatch/internal/docid"
	"github.com/hyperjump/resumatch/internal/embedding"
	"github.com/hyperjump/resumatch/internal/extract"
	"github.com/hyperjump/resumatch/internal/metrics"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/observability"
	"github.com/hyperjump/resumatch/internal/storage"
	"github.com/hyperjump/resumatch/internal/vector"
	"go.uber.org/zap"
)

// ErrExtract marks a file whose text could not be extracted.
var ErrExtract = errors.New("text extraction failed")

// Indexer writes documents to storage and the vector index.
type Indexer struct {
	storage     storage.Storage
	provider    embedding.Provider
	vectorIndex vector.Index
	extractor   *extract.Extractor
	logger      *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (document ingested, file skipped, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil; when nil, file ingestion treats every file as plain text.
func NewIndexer(
	store storage.Storage,
	provider embedding.Provider,
	vectorIndex vector.Index,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:     store,
		provider:    provider,
		vectorIndex: vectorIndex,
		extractor:   extractor,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest encodes text and stores it under a new ID derived from baseName.
func (idx *Indexer) Ingest(ctx context.Context, baseName, text string) (string, error) {
	return idx.IngestDocument(ctx, &models.IngestInput{BaseName: baseName, Text: text})
}

// IngestDocument stores one document. The text is encoded first, then the row is written
// and the vector upserted; a failed upsert removes the row again, so a failed ingest leaves
// neither behind.
func (idx *Indexer) IngestDocument(ctx context.Context, input *models.IngestInput) (id string, err error) {
	ctx, span := observability.StartIngestSpan(ctx, input.BaseName)
	start := time.Now()
	defer func() {
		observability.RecordError(span, err)
		span.End()
		if err != nil {
			metrics.IngestTotal.WithLabelValues("error").Inc()
			return
		}
		metrics.IngestTotal.WithLabelValues("ok").Inc()
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	vec, err := idx.provider.Embed(ctx, input.Text)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", input.BaseName, err)
	}

	doc := &models.Document{
		ID:       docid.Assign(input.BaseName),
		BaseName: docid.Sanitize(input.BaseName),
		RawText:  input.Text,
		Source:   input.Source,
	}
	if err := idx.storage.CreateDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	if err := idx.vectorIndex.Upsert(ctx, doc.ID, vec); err != nil {
		if delErr := idx.storage.DeleteDocument(ctx, doc.ID); delErr != nil {
			idx.logger.Warn("rollback of document row failed", zap.String("id", doc.ID), zap.Error(delErr))
		}
		return "", fmt.Errorf("failed to index vector: %w", err)
	}
	if n, cerr := idx.vectorIndex.Count(ctx); cerr == nil {
		metrics.IndexedDocuments.Set(float64(n))
	}
	idx.logger.Debug("document ingested", zap.String("id", doc.ID), zap.Int("chars", len(input.Text)))
	return doc.ID, nil
}

// IngestBytes extracts text from an uploaded file and ingests it. The base name is the
// filename stem.
func (idx *Indexer) IngestBytes(ctx context.Context, filename string, content []byte) (string, error) {
	text, err := idx.extractBytes(content, filepath.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("%w for %s: %w", ErrExtract, filename, err)
	}
	return idx.IngestDocument(ctx, &models.IngestInput{BaseName: docid.Stem(filename), Text: text})
}

// IngestFile reads and ingests the file at path. If allowedExts is non-empty the extension
// must be in it. With skipUnchanged, a file already ingested with the same path, mtime and
// size is skipped and its existing ID returned with skipped=true.
func (idx *Indexer) IngestFile(ctx context.Context, path string, allowedExts []string, skipUnchanged bool) (id string, skipped bool, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false, fmt.Errorf("absolute path: %w", err)
	}
	if !extract.ExtensionAllowed(filepath.Ext(absPath), allowedExts) {
		return "", false, fmt.Errorf("extension %q not in allowed list", filepath.Ext(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("not a regular file: %s", absPath)
	}
	src := &models.Source{Path: absPath, Mtime: info.ModTime().UnixNano(), Size: info.Size()}

	if skipUnchanged {
		doc, err := idx.storage.FindBySource(ctx, src.Path, src.Mtime, src.Size)
		switch {
		case err == nil:
			metrics.IngestTotal.WithLabelValues("skipped").Inc()
			idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath), zap.String("id", doc.ID))
			return doc.ID, true, nil
		case !errors.Is(err, storage.ErrNotFound):
			return "", false, fmt.Errorf("lookup source: %w", err)
		}
	}

	text, err := idx.extractFile(absPath)
	if err != nil {
		return "", false, fmt.Errorf("%w for %s: %w", ErrExtract, absPath, err)
	}
	id, err = idx.IngestDocument(ctx, &models.IngestInput{
		BaseName: docid.Stem(absPath),
		Text:     text,
		Source:   src,
	})
	if err != nil {
		return "", false, err
	}
	idx.logger.Debug("indexer file ingested", zap.String("path", absPath), zap.String("id", id))
	return id, false, nil
}

// IngestDirectory walks dir (recursively when recursive is set) and ingests each regular file
// whose extension is allowed. It returns the IDs ingested and the first error encountered.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, allowedExts []string, recursive, skipUnchanged bool) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	ids := make([]string, 0)
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != absDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !extract.ExtensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		id, skipped, ingestErr := idx.IngestFile(ctx, path, allowedExts, skipUnchanged)
		if ingestErr != nil {
			return fmt.Errorf("%s: %w", path, ingestErr)
		}
		if !skipped {
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

func (idx *Indexer) extractFile(path string) (string, error) {
	if idx.extractor != nil {
		return idx.extractor.Extract(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (idx *Indexer) extractBytes(content []byte, ext string) (string, error) {
	if idx.extractor != nil {
		return idx.extractor.ExtractBytes(content, ext)
	}
	return string(content), nil
}
