package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recorder) count(suffix string) int {
	n := 0
	for _, p := range r.snapshot() {
		if strings.HasSuffix(p, suffix) {
			n++
		}
	}
	return n
}

var sheets = []string{".xlsx", ".xls", ".csv"}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/in/PR-1.xlsx", sheets, true},
		{"/in/PR-1.XLS", sheets, true},
		{"/in/PR-1.csv", []string{"csv"}, true},
		{"/in/notes.txt", sheets, false},
		{"/in/PR-1", nil, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestWanted_skipsLockAndHiddenFiles(t *testing.T) {
	w := NewWatcher(nil, sheets, true, nil)
	tests := []struct {
		path string
		want bool
	}{
		{"/in/PR-1.xlsx", true},
		{"/in/~$PR-1.xlsx", false},
		{"/in/.PR-1.xlsx", false},
		{"/in/PR-1.pdf", false},
	}
	for _, tt := range tests {
		if got := w.wanted(tt.path); got != tt.want {
			t.Errorf("wanted(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcher_DebounceAndFilter(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher([]string{dir}, sheets, true, rec.handle, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	fPath := filepath.Join(dir, "PR-7.csv")
	for i := 0; i < 3; i++ {
		if err := writeFile(fPath, strings.Repeat("Description,Qty\n", i+1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writeFile(filepath.Join(dir, "notes.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "~$PR-7.xlsx"), "lock"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)

	if n := rec.count("PR-7.csv"); n != 1 {
		t.Errorf("PR-7.csv handled %d times, want 1 (debounced)", n)
	}
	if rec.count("notes.txt") != 0 || rec.count("~$PR-7.xlsx") != 0 {
		t.Errorf("unexpected files handled: %v", rec.snapshot())
	}
}

func TestWatcher_SyncExistingFiles_handlesOncePerVersion(t *testing.T) {
	dir := t.TempDir()
	if err := writeFile(filepath.Join(dir, "PR-1.xlsx"), "a"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "ignore.pdf"), "x"); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w := NewWatcher([]string{dir}, sheets, true, rec.handle)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExistingFiles()
	w.SyncExistingFiles()

	got := rec.snapshot()
	if len(got) != 1 || !strings.HasSuffix(got[0], "PR-1.xlsx") {
		t.Errorf("expected PR-1.xlsx handled once, got %v", got)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox", "purchasing")
	w := NewWatcher([]string{root}, sheets, true, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
	if dirs := w.Directories(); len(dirs) != 1 || dirs[0] != root {
		t.Errorf("Directories() = %v", dirs)
	}
}

func TestWatcher_NewDirectory_handlesNestedFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := NewWatcher([]string{dir}, sheets, true, rec.handle, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	nested := filepath.Join(dir, "vessel-a", "march")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(nested, "PR-9.xlsx"), "deep"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(800 * time.Millisecond)

	if rec.count("PR-9.xlsx") != 1 {
		t.Errorf("expected PR-9.xlsx handled once, got %v", rec.snapshot())
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
