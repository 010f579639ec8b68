// Package watcher runs the resume inbox: it watches directories with fsnotify and ingests
// new or rewritten files once they have been quiet for a debounce interval.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/resumatch/internal/extract"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Ingester ingests a single file. skipUnchanged asks it to skip a file whose path, mtime and
// size were already ingested.
type Ingester interface {
	IngestFile(ctx context.Context, path string, allowedExts []string, skipUnchanged bool) (id string, skipped bool, err error)
}

// Options configures an Inbox.
type Options struct {
	Directories []string
	Extensions  []string
	Recursive   bool
	// Debounce is the quiet period after the last write before a file is ingested.
	Debounce time.Duration
}

// Inbox watches resume drop directories.
type Inbox struct {
	ingester   Ingester
	extensions []string
	recursive  bool
	debounce   time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	ctx       context.Context
	roots     []string
	rootPaths map[string][]string // root -> directories registered with fsnotify
	pending   map[string]*time.Timer
	fsw       *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
}

// InboxOption configures an Inbox.
type InboxOption func(*Inbox)

// WithLogger sets a logger for inbox events.
func WithLogger(l *zap.Logger) InboxOption {
	return func(in *Inbox) { in.logger = l }
}

// NewInbox creates an inbox over opts.Directories. Nothing is watched until Start.
func NewInbox(ingester Ingester, opts Options, options ...InboxOption) *Inbox {
	in := &Inbox{
		ingester:   ingester,
		extensions: opts.Extensions,
		recursive:  opts.Recursive,
		debounce:   opts.Debounce,
		logger:     zap.NewNop(),
		rootPaths:  make(map[string][]string),
		pending:    make(map[string]*time.Timer),
	}
	if in.debounce <= 0 {
		in.debounce = defaultDebounce
	}
	for _, d := range opts.Directories {
		if abs, err := filepath.Abs(d); err == nil {
			in.roots = append(in.roots, filepath.Clean(abs))
		}
	}
	for _, o := range options {
		o(in)
	}
	return in
}

// Start registers every root with fsnotify, ingests files already present and then
// processes events until ctx is cancelled or Stop is called.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	in.fsw = fsw
	in.ctx = ctx
	in.done = make(chan struct{})
	for _, root := range in.roots {
		if err := in.addRootLocked(root); err != nil {
			_ = fsw.Close()
			in.fsw = nil
			return err
		}
	}
	in.logger.Info("inbox started",
		zap.Strings("directories", in.roots),
		zap.Strings("extensions", in.extensions),
		zap.Bool("recursive", in.recursive),
	)
	in.wg.Add(1)
	go in.run(ctx, fsw, in.done)
	for _, root := range in.roots {
		in.syncAsyncLocked(root)
	}
	return nil
}

func (in *Inbox) run(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer in.wg.Done()
	for {
		select {
		case <-ctx.Done():
			go in.Stop()
			return
		case <-done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			in.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			in.logger.Warn("inbox watch error", zap.Error(err))
		}
	}
}

func (in *Inbox) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !in.underRoot(path) {
		return
	}
	in.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			in.handleNewDirectory(path)
			return
		}
		if extract.ExtensionAllowed(filepath.Ext(path), in.extensions) {
			in.schedule(path)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// Stored resumes are immutable; a removed file only cancels a pending ingest.
		in.cancel(path)
	}
}

func (in *Inbox) handleNewDirectory(dir string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fsw == nil || !in.recursive {
		return
	}
	root := in.rootOfLocked(dir)
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := in.fsw.Add(p); err != nil {
			in.logger.Warn("inbox failed to watch directory", zap.String("path", p), zap.Error(err))
			return nil
		}
		if root != "" {
			in.rootPaths[root] = append(in.rootPaths[root], p)
		}
		return nil
	})
	in.syncAsyncLocked(dir)
}

func (in *Inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fsw == nil {
		return
	}
	if t, ok := in.pending[path]; ok {
		t.Stop()
	}
	in.pending[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.pending, path)
		ctx := in.ctx
		in.mu.Unlock()
		in.ingest(ctx, path)
	})
}

func (in *Inbox) cancel(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
		delete(in.pending, path)
	}
}

func (in *Inbox) ingest(ctx context.Context, path string) {
	if ctx == nil || ctx.Err() != nil {
		return
	}
	id, skipped, err := in.ingester.IngestFile(ctx, path, in.extensions, true)
	switch {
	case err != nil:
		in.logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
	case skipped:
		in.logger.Debug("inbox file unchanged", zap.String("path", path), zap.String("id", id))
	default:
		in.logger.Info("inbox ingested resume", zap.String("path", path), zap.String("id", id))
	}
}

// syncAsyncLocked ingests every allowed file under dir in the background.
func (in *Inbox) syncAsyncLocked(dir string) {
	ctx := in.ctx
	recursive := in.recursive
	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		in.sync(ctx, dir, recursive)
	}()
}

func (in *Inbox) sync(ctx context.Context, dir string, recursive bool) {
	in.logger.Debug("inbox syncing directory", zap.String("path", dir))
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		if d.IsDir() {
			if p != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && extract.ExtensionAllowed(filepath.Ext(p), in.extensions) {
			in.ingest(ctx, p)
		}
		return nil
	})
}

func (in *Inbox) underRoot(path string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.rootOfLocked(path) != ""
}

func (in *Inbox) rootOfLocked(path string) string {
	for _, root := range in.roots {
		if root == path || inDir(root, path) {
			return root
		}
	}
	return ""
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// addRootLocked creates root if missing and registers it (and its subdirectories when
// recursive) with fsnotify.
func (in *Inbox) addRootLocked(root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	var paths []string
	if in.recursive {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := in.fsw.Add(p); err != nil {
				return err
			}
			paths = append(paths, p)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := in.fsw.Add(root); err != nil {
			return err
		}
		paths = append(paths, root)
	}
	in.rootPaths[root] = paths
	return nil
}

// ErrNotStarted is returned by AddDirectory before Start.
var ErrNotStarted = errors.New("inbox not started")

// AddDirectory starts watching root and, when syncExisting is set, ingests the files
// already in it. Adding a watched root again is a no-op.
func (in *Inbox) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.fsw == nil {
		return ErrNotStarted
	}
	for _, r := range in.roots {
		if r == abs {
			return nil
		}
	}
	if err := in.addRootLocked(abs); err != nil {
		return err
	}
	in.roots = append(in.roots, abs)
	in.logger.Info("inbox directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		in.syncAsyncLocked(abs)
	}
	return nil
}

// RemoveDirectory stops watching root. Resumes already ingested from it stay indexed.
func (in *Inbox) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	in.mu.Lock()
	defer in.mu.Unlock()
	idx := -1
	for i, r := range in.roots {
		if r == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if in.fsw != nil {
		for _, p := range in.rootPaths[abs] {
			_ = in.fsw.Remove(p)
		}
	}
	delete(in.rootPaths, abs)
	in.roots = append(in.roots[:idx], in.roots[idx+1:]...)
	for path, t := range in.pending {
		if path == abs || inDir(abs, path) {
			t.Stop()
			delete(in.pending, path)
		}
	}
	in.logger.Info("inbox directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the watched root directories.
func (in *Inbox) Directories() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]string(nil), in.roots...)
}

// Stop stops watching, drops pending ingests and waits for running syncs to finish.
func (in *Inbox) Stop() {
	in.mu.Lock()
	if in.fsw == nil {
		in.mu.Unlock()
		return
	}
	for path, t := range in.pending {
		t.Stop()
		delete(in.pending, path)
	}
	_ = in.fsw.Close()
	in.fsw = nil
	close(in.done)
	in.mu.Unlock()
	in.wg.Wait()
}
