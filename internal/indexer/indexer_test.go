package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/resumatch/internal/embedding"
	"github.com/hyperjump/resumatch/internal/extract"
	"github.com/hyperjump/resumatch/internal/storage"
	"github.com/hyperjump/resumatch/internal/vector"
)

func testIndexer(t *testing.T, dims int) (*Indexer, storage.Storage, vector.Index) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	vecIndex, err := vector.NewMemoryIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = vecIndex.Close() })
	return NewIndexer(store, embedding.NewMockEmbedder(4), vecIndex, extract.NewExtractor()), store, vecIndex
}

func TestIngest_storesRowAndVector(t *testing.T) {
	idx, store, vecIndex := testIndexer(t, 0)
	ctx := context.Background()

	id, err := idx.Ingest(ctx, "Jane Doe", "Senior Go engineer, Kubernetes, Postgres")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "Jane_Doe-") {
		t.Errorf("id = %q, want Jane_Doe- prefix", id)
	}
	doc, err := store.GetDocument(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.RawText != "Senior Go engineer, Kubernetes, Postgres" || doc.BaseName != "Jane_Doe" {
		t.Errorf("stored %+v", doc)
	}
	ids, err := vecIndex.ListIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Errorf("index ids = %v, want [%s]", ids, id)
	}
}

func TestIngest_sameContentTwiceYieldsTwoIDs(t *testing.T) {
	idx, _, vecIndex := testIndexer(t, 0)
	ctx := context.Background()

	a, err := idx.Ingest(ctx, "cv", "same text")
	if err != nil {
		t.Fatal(err)
	}
	b, err := idx.Ingest(ctx, "cv", "same text")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("expected distinct ids, both %q", a)
	}
	if n, _ := vecIndex.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestIngest_upsertFailureRollsBackRow(t *testing.T) {
	// Index fixed at 8 dimensions while the mock encoder produces 4.
	idx, store, vecIndex := testIndexer(t, 8)
	ctx := context.Background()

	_, err := idx.Ingest(ctx, "cv", "some resume")
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	if n, _ := store.CountDocuments(ctx); n != 0 {
		t.Errorf("documents = %d, want 0 after rollback", n)
	}
	if n, _ := vecIndex.Count(ctx); n != 0 {
		t.Errorf("vectors = %d, want 0", n)
	}
}

type failingProvider struct{}

func (failingProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, &embedding.EncodingError{Err: errors.New("model unavailable")}
}
func (failingProvider) Dimensions() int { return 4 }
func (failingProvider) Close() error    { return nil }

func TestIngest_encodingFailureStoresNothing(t *testing.T) {
	_, store, vecIndex := testIndexer(t, 0)
	idx := NewIndexer(store, failingProvider{}, vecIndex, nil)
	ctx := context.Background()

	_, err := idx.Ingest(ctx, "cv", "text")
	if !errors.Is(err, embedding.ErrEncoding) {
		t.Fatalf("err = %v, want ErrEncoding", err)
	}
	if n, _ := store.CountDocuments(ctx); n != 0 {
		t.Errorf("documents = %d, want 0", n)
	}
}

func TestIngestFile_skipsUnchanged(t *testing.T) {
	idx, store, _ := testIndexer(t, 0)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "John Smith.txt")
	if err := os.WriteFile(path, []byte("Data engineer, Spark, Airflow"), 0600); err != nil {
		t.Fatal(err)
	}

	id, skipped, err := idx.IngestFile(ctx, path, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if skipped {
		t.Fatal("first ingest should not be skipped")
	}
	if !strings.HasPrefix(id, "John_Smith-") {
		t.Errorf("id = %q", id)
	}
	doc, err := store.GetDocument(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Source == nil || doc.Source.Path != mustAbs(t, path) {
		t.Errorf("source = %+v", doc.Source)
	}

	again, skipped, err := idx.IngestFile(ctx, path, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if !skipped || again != id {
		t.Errorf("second ingest: id=%q skipped=%v, want %q true", again, skipped, id)
	}

	// Without skipUnchanged the file is ingested again as a new document.
	third, skipped, err := idx.IngestFile(ctx, path, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if skipped || third == id {
		t.Errorf("forced ingest: id=%q skipped=%v", third, skipped)
	}
}

func TestIngestFile_extensionNotAllowed(t *testing.T) {
	idx, _, _ := testIndexer(t, 0)
	path := filepath.Join(t.TempDir(), "notes.go")
	if err := os.WriteFile(path, []byte("package main"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := idx.IngestFile(context.Background(), path, []string{".txt"}, true); err == nil {
		t.Fatal("expected error for disallowed extension")
	}
}

func TestIngestDirectory(t *testing.T) {
	idx, _, vecIndex := testIndexer(t, 0)
	ctx := context.Background()

	dir := t.TempDir()
	sub := filepath.Join(dir, "archive")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "a.txt"):   "backend developer",
		filepath.Join(dir, "b.md"):    "frontend developer",
		filepath.Join(dir, "c.bin"):   "ignored",
		filepath.Join(sub, "old.txt"): "retired resume",
	}
	for p, content := range files {
		if err := os.WriteFile(p, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	allowed := []string{".txt", ".md"}

	ids, err := idx.IngestDirectory(ctx, dir, allowed, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("non-recursive ingested %v, want 2 ids", ids)
	}

	ids, err = idx.IngestDirectory(ctx, dir, allowed, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || !strings.HasPrefix(ids[0], "old-") {
		t.Fatalf("recursive pass ingested %v, want only the nested file", ids)
	}
	if n, _ := vecIndex.Count(ctx); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestIngestDirectory_notADirectory(t *testing.T) {
	idx, _, _ := testIndexer(t, 0)
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.IngestDirectory(context.Background(), path, nil, true, true); err == nil {
		t.Fatal("expected error")
	}
}

func TestIngestBytes_usesFilenameStem(t *testing.T) {
	idx, store, _ := testIndexer(t, 0)
	ctx := context.Background()

	id, err := idx.IngestBytes(ctx, "uploads/Ana Lima.txt", []byte("ML engineer"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "Ana_Lima-") {
		t.Errorf("id = %q", id)
	}
	doc, err := store.GetDocument(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if doc.RawText != "ML engineer" || doc.Source != nil {
		t.Errorf("stored %+v", doc)
	}
}

func mustAbs(t *testing.T, path string) string {
	t.Helper()
	a, err := filepath.Abs(path)
	if err != nil {
		t.Fatal(err)
	}
	return a
}
