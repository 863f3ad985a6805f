package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcher_PrunesOnDelete(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "b.mp3")
	other := filepath.Join(dir, "other.txt")
	for _, p := range []string{a, b, other} {
		if err := os.WriteFile(p, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	pruned := make(chan struct{}, 4)
	fw, err := NewFileWatcher(func() error {
		pruned <- struct{}{}
		return nil
	})
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fw.Start(ctx)
	fw.Update(PlayerStatus{Paths: []string{a, b}})
	if fw.WatchedDirs() != 1 {
		t.Fatalf("expected 1 watched dir, got %d", fw.WatchedDirs())
	}

	// files not in the playlist are ignored
	os.Remove(other)
	select {
	case <-pruned:
		t.Fatal("prune triggered for file outside the playlist")
	case <-time.After(2 * pruneDebounce):
	}

	// two deletions in a burst prune once
	os.Remove(a)
	os.Remove(b)
	select {
	case <-pruned:
	case <-time.After(2 * time.Second):
		t.Fatal("prune not triggered")
	}
	select {
	case <-pruned:
		t.Error("expected a single prune for a burst of deletions")
	case <-time.After(2 * pruneDebounce):
	}

	fw.Update(PlayerStatus{})
	if fw.WatchedDirs() != 0 {
		t.Errorf("expected no watched dirs, got %d", fw.WatchedDirs())
	}
}
