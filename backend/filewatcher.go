package backend

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/dweymouth/mediadeck/sharedutil"
	"github.com/fsnotify/fsnotify"
)

const pruneDebounce = 250 * time.Millisecond

// FileWatcher watches the directories of playlist entries and prunes
// entries whose files are deleted or renamed away.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	prune   func() error

	mu    sync.Mutex
	dirs  map[string]bool
	files map[string]struct{}
	timer *time.Timer
}

func NewFileWatcher(prune func() error) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		watcher: w,
		prune:   prune,
		dirs:    make(map[string]bool),
		files:   make(map[string]struct{}),
	}, nil
}

// Start processes file system events until ctx is done.
func (f *FileWatcher) Start(ctx context.Context) {
	go func() {
		defer f.watcher.Close()
		for {
			select {
			case <-ctx.Done():
				f.mu.Lock()
				if f.timer != nil {
					f.timer.Stop()
				}
				f.mu.Unlock()
				return
			case ev, ok := <-f.watcher.Events:
				if !ok {
					return
				}
				f.handleEvent(ev)
			case err, ok := <-f.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("file watcher error: %v", err)
			}
		}
	}()
}

// Update syncs the watched directories with the playlist paths in st.
// Registered with Loop.OnUpdate.
func (f *FileWatcher) Update(st PlayerStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.files = sharedutil.ToSet(st.Paths)
	dirs := make(map[string]bool)
	for _, p := range st.Paths {
		dirs[filepath.Dir(p)] = true
	}

	for d := range dirs {
		if f.dirs[d] {
			continue
		}
		if err := f.watcher.Add(d); err != nil {
			log.Printf("failed to watch %s: %v", d, err)
			continue
		}
		f.dirs[d] = true
	}
	for d := range f.dirs {
		if !dirs[d] {
			f.watcher.Remove(d)
			delete(f.dirs, d)
		}
	}
}

func (f *FileWatcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[ev.Name]; !ok {
		return
	}
	// coalesce bursts, e.g. a whole directory being deleted
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(pruneDebounce, func() {
		if err := f.prune(); err != nil {
			log.Printf("failed to prune playlist: %v", err)
		}
	})
}

// WatchedDirs returns the number of directories being watched.
func (f *FileWatcher) WatchedDirs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dirs)
}
