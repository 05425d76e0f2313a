// Package watcher re-syncs collections when files under their roots change.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce batches editor write bursts into one sync.
const DefaultDebounce = 500 * time.Millisecond

// watchedExts mirrors what the walker ingests; events on other files are
// noise.
var watchedExts = map[string]bool{".md": true, ".txt": true}

// Root is one collection directory under watch.
type Root struct {
	Collection string
	Path       string
}

// Watcher debounces filesystem events per collection and invokes the sync
// callback.
type Watcher struct {
	roots    []Root
	onSync   func(collection string)
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	timers   map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce overrides the debounce interval. Used by tests.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New returns a watcher over the given collection roots. onSync runs on the
// watcher goroutine's timer after events settle; it receives the collection
// name.
func New(roots []Root, onSync func(collection string), opts ...Option) *Watcher {
	w := &Watcher{
		roots:    roots,
		onSync:   onSync,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start registers every root (recursively) and begins dispatching. It runs
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.started = true

	for _, root := range w.roots {
		if err := addRecursive(fsw, root.Path); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()

	w.logger.Info("watching collections", zap.Int("roots", len(w.roots)))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	collection, ok := w.collectionFor(ev.Name)
	if !ok {
		return
	}

	// A new subdirectory needs its own watch before events inside it arrive.
	if ev.Op.Has(fsnotify.Create) {
		w.mu.Lock()
		fsw := w.fsw
		w.mu.Unlock()
		if fsw != nil {
			_ = addRecursive(fsw, ev.Name)
		}
	}

	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return
	}
	if !watchedExts[strings.ToLower(filepath.Ext(base))] && !ev.Op.Has(fsnotify.Create) {
		return
	}

	w.logger.Debug("file event",
		zap.String("op", ev.Op.String()),
		zap.String("path", ev.Name),
		zap.String("collection", collection))
	w.scheduleSync(collection)
}

// scheduleSync (re)arms the per-collection debounce timer.
func (w *Watcher) scheduleSync(collection string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[collection]; ok {
		t.Stop()
	}
	w.timers[collection] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, collection)
		w.mu.Unlock()
		w.onSync(collection)
	})
}

func (w *Watcher) collectionFor(path string) (string, bool) {
	clean := filepath.Clean(path)
	for _, root := range w.roots {
		rel, err := filepath.Rel(filepath.Clean(root.Path), clean)
		if err != nil {
			continue
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		// Events under hidden directories never reach ingestion.
		if hasHiddenComponent(rel) {
			return "", false
		}
		return root.Collection, true
	}
	return "", false
}

func hasHiddenComponent(rel string) bool {
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part != "." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Path may have vanished between the event and the walk.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

// Stop releases the underlying watcher and cancels pending timers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for collection, t := range w.timers {
		t.Stop()
		delete(w.timers, collection)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
