package watcher

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// collect returns an onChange callback that forwards batches to a channel.
func collect() (func([]string), chan []string) {
	ch := make(chan []string, 16)
	return func(paths []string) { ch <- paths }, ch
}

// waitFor drains batches until every wanted suffix has been seen or the deadline passes.
func waitFor(t *testing.T, ch chan []string, suffixes ...string) []string {
	t.Helper()
	var seen []string
	deadline := time.After(3 * time.Second)
	for {
		missing := false
		for _, s := range suffixes {
			if !containsSuffix(seen, s) {
				missing = true
				break
			}
		}
		if !missing {
			return seen
		}
		select {
		case batch := <-ch:
			seen = append(seen, batch...)
		case <-deadline:
			t.Fatalf("timed out waiting for %v, saw %v", suffixes, seen)
			return nil
		}
	}
}

func containsSuffix(paths []string, suffix string) bool {
	for _, p := range paths {
		if strings.HasSuffix(p, suffix) {
			return true
		}
	}
	return false
}

func startWatcher(t *testing.T, roots []string, exts []string, recursive bool, onChange func([]string)) *Watcher {
	t.Helper()
	w := NewWatcher(roots, exts, recursive, onChange, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	w := startWatcher(t, []string{dir}, []string{".txt"}, true, nil)

	if err := w.AddDirectory(other); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDirectory(other); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 2 || filepath.Clean(dirs[1]) != filepath.Clean(other) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := w.RemoveDirectory(other); err != nil {
		t.Fatal(err)
	}
	if got := w.Directories(); len(got) != 1 {
		t.Errorf("after remove: %v", got)
	}
}

func TestWatcher_StartRejectsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	w := NewWatcher([]string{root}, nil, true, nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error for missing root")
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("root should not be created, stat err = %v", err)
	}
}

func TestWatcher_ReportsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	onChange, ch := collect()
	startWatcher(t, []string{dir}, []string{".txt"}, true, onChange)

	if err := writeFile(filepath.Join(sub, "ignore.xyz"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(sub, "f.txt"), "hello"); err != nil {
		t.Fatal(err)
	}
	seen := waitFor(t, ch, "f.txt")
	if containsSuffix(seen, "ignore.xyz") {
		t.Errorf("ignore.xyz should be filtered out, saw %v", seen)
	}
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	if err := writeFile(path, "bye"); err != nil {
		t.Fatal(err)
	}
	onChange, ch := collect()
	startWatcher(t, []string{dir}, []string{".txt"}, true, onChange)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, "gone.txt")
}

func TestWatcher_NewFolderIsWatched(t *testing.T) {
	dir := t.TempDir()
	onChange, ch := collect()
	startWatcher(t, []string{dir}, []string{".txt", ".md"}, true, onChange)

	nested := filepath.Join(dir, "level1", "level2")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, "level1")

	// level2 may have been created before level1 was watched; a later write must still be seen.
	if err := writeFile(filepath.Join(nested, "deep.txt"), "deep content"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, ch, "deep.txt")
}

func TestWatcher_DebounceBatchesChanges(t *testing.T) {
	dir := t.TempDir()
	onChange, ch := collect()
	w := startWatcher(t, []string{dir}, nil, true, onChange)

	for _, name := range []string{"c.txt", "a.txt", "b.txt", "a.txt"} {
		w.markChanged(filepath.Join(dir, name))
	}

	select {
	case batch := <-ch:
		want := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt"), filepath.Join(dir, "c.txt")}
		if !reflect.DeepEqual(batch, want) {
			t.Errorf("batch = %v, want %v", batch, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered")
	}
	select {
	case batch := <-ch:
		t.Errorf("expected a single batch, got another: %v", batch)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopDropsPending(t *testing.T) {
	dir := t.TempDir()
	onChange, ch := collect()
	w := NewWatcher([]string{dir}, nil, true, onChange, WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.markChanged(filepath.Join(dir, "a.txt"))
	w.Stop()
	w.Stop()

	select {
	case batch := <-ch:
		t.Errorf("no batch expected after Stop, got %v", batch)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{".txt"}, true},
		{"/a/b.pdf", []string{"pdf"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		got := inDir(tt.dir, tt.path)
		if got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
