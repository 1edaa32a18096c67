package adapter

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	m "deadwood.dev/pkg/deadwood/internal/model"
)

// DefaultDebounce is the quiet period after the last file event before a
// change batch is delivered.
const DefaultDebounce = 200 * time.Millisecond

// Invalidator is implemented by adapters that cache file system state.
type Invalidator interface {
	Invalidate()
}

// ChangeBatch is the set of paths touched during one debounce window.
type ChangeBatch struct {
	Paths []m.Path
}

// WatchAdapter reports file changes below a directory tree.
type WatchAdapter interface {
	// Watch delivers change batches until ctx is done. The channel is closed
	// when watching stops.
	Watch(ctx context.Context, root m.Path) (<-chan ChangeBatch, error)
}

// LocalWatchAdapter watches the local file system with fsnotify.
type LocalWatchAdapter struct {
	debounce time.Duration
}

// NewLocalWatchAdapter constructs a LocalWatchAdapter. A zero debounce uses
// DefaultDebounce.
func NewLocalWatchAdapter(debounce time.Duration) *LocalWatchAdapter {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &LocalWatchAdapter{debounce: debounce}
}

func (a *LocalWatchAdapter) Watch(ctx context.Context, root m.Path) (<-chan ChangeBatch, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := addRecursive(watcher, string(root)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	batches := make(chan ChangeBatch)

	go a.loop(ctx, watcher, batches)

	return batches, nil
}

func (a *LocalWatchAdapter) loop(ctx context.Context, watcher *fsnotify.Watcher, batches chan<- ChangeBatch) {
	defer close(batches)
	defer watcher.Close()

	var (
		pending = map[m.Path]bool{}
		timer   *time.Timer
		timerC  <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if skipWatchedDir(filepath.Base(event.Name)) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			pending[m.Path(event.Name)] = true

			if timer == nil {
				timer = time.NewTimer(a.debounce)
			} else {
				timer.Reset(a.debounce)
			}

			timerC = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			slog.Warn("File watcher error", "error", err)
		case <-timerC:
			timerC = nil

			batch := ChangeBatch{Paths: make([]m.Path, 0, len(pending))}
			for path := range pending {
				batch.Paths = append(batch.Paths, path)
			}

			pending = map[m.Path]bool{}

			select {
			case batches <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}

			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && skipWatchedDir(d.Name()) {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}

func skipWatchedDir(name string) bool {
	return name == ".git" || name == "node_modules"
}
