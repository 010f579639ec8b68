package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingIngester struct {
	mu    sync.Mutex
	calls map[string]int
	seen  chan string
}

func newRecordingIngester() *recordingIngester {
	return &recordingIngester{calls: make(map[string]int), seen: make(chan string, 64)}
}

func (r *recordingIngester) IngestFile(_ context.Context, path string, _ []string, skipUnchanged bool) (string, bool, error) {
	r.mu.Lock()
	r.calls[path]++
	r.mu.Unlock()
	r.seen <- path
	return filepath.Base(path), false, nil
}

func (r *recordingIngester) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for ingest of %s", want)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func startInbox(t *testing.T, ing Ingester, opts Options) *Inbox {
	t.Helper()
	in := NewInbox(ing, opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(in.Stop)
	return in
}

func TestInbox_syncsExistingFilesOnStart(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.txt")
	writeFile(t, existing, "resume already in the inbox")
	writeFile(t, filepath.Join(dir, "ignored.bin"), "binary")

	ing := newRecordingIngester()
	startInbox(t, ing, Options{Directories: []string{dir}, Extensions: []string{".txt"}, Recursive: true})

	waitFor(t, ing.seen, existing)
	if n := ing.count(filepath.Join(dir, "ignored.bin")); n != 0 {
		t.Errorf("disallowed extension ingested %d times", n)
	}
}

func TestInbox_debouncesNewFiles(t *testing.T) {
	dir := t.TempDir()
	ing := newRecordingIngester()
	startInbox(t, ing, Options{
		Directories: []string{dir},
		Extensions:  []string{".txt"},
		Recursive:   true,
		Debounce:    150 * time.Millisecond,
	})

	// Let the startup sync of the empty directory finish.
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir, "new.txt")
	writeFile(t, path, "first draft")
	writeFile(t, path, "second draft")
	writeFile(t, path, "final")

	waitFor(t, ing.seen, path)
	time.Sleep(400 * time.Millisecond)
	if n := ing.count(path); n != 1 {
		t.Errorf("ingested %d times, want 1 after debounce", n)
	}
}

func TestInbox_newSubdirectoryWatchedWhenRecursive(t *testing.T) {
	dir := t.TempDir()
	ing := newRecordingIngester()
	startInbox(t, ing, Options{
		Directories: []string{dir},
		Extensions:  []string{".md"},
		Recursive:   true,
		Debounce:    50 * time.Millisecond,
	})

	sub := filepath.Join(dir, "batch")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to register the new directory.
	time.Sleep(200 * time.Millisecond)
	path := filepath.Join(sub, "cv.md")
	writeFile(t, path, "# Candidate")
	waitFor(t, ing.seen, path)
}

func TestInbox_AddRemoveDirectories(t *testing.T) {
	ing := newRecordingIngester()
	in := startInbox(t, ing, Options{Extensions: []string{".txt"}})

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, "hello")

	if err := in.AddDirectory(dir, true); err != nil {
		t.Fatal(err)
	}
	if err := in.AddDirectory(dir, true); err != nil {
		t.Fatal(err)
	}
	dirs := in.Directories()
	if len(dirs) != 1 || dirs[0] != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}
	waitFor(t, ing.seen, path)

	if err := in.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(in.Directories()) != 0 {
		t.Errorf("after remove: %v", in.Directories())
	}
}

func TestInbox_AddDirectoryBeforeStart(t *testing.T) {
	in := NewInbox(newRecordingIngester(), Options{})
	if err := in.AddDirectory(t.TempDir(), false); err != ErrNotStarted {
		t.Errorf("err = %v, want ErrNotStarted", err)
	}
}

func TestInbox_createsMissingRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox", "resumes")
	startInbox(t, newRecordingIngester(), Options{Directories: []string{dir}})
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/inbox", "/inbox/a.txt", true},
		{"/inbox", "/inbox/sub/a.txt", true},
		{"/inbox", "/other/a.txt", false},
		{"/inbox", "/inbox2/a.txt", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
