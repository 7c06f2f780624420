package signal

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher observes a file-backed store's root directory with fsnotify and
// republishes writes performed by other processes as change signals with an
// empty origin. Together with a Bus it gives file stores the same
// cross-context semantics an in-process store gets from engine publishing.
type Watcher struct {
	watcher *fsnotify.Watcher
	bus     *Bus
	storeID string
	root    string
	logger  *slog.Logger

	debounce    map[string]time.Time
	debounceDur time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	mu      sync.Mutex
}

// NewWatcher creates a Watcher for the file store rooted at root, publishing
// into bus under the given store identity. A nil logger falls back to
// slog.Default().
func NewWatcher(root, storeID string, bus *Bus, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		watcher:     fsw,
		bus:         bus,
		storeID:     storeID,
		root:        root,
		logger:      logger,
		debounce:    make(map[string]time.Time),
		debounceDur: defaultDebounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching the store root. Non-blocking; the watch loop runs in
// a goroutine until Stop is called or ctx is cancelled. Calling Start on a
// running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.root, 0o755); err != nil {
		w.logger.WarnContext(ctx, "watcher root create failed",
			slog.String("root", w.root),
			slog.String("error", err.Error()))
	}

	// fsnotify watches are not recursive; register existing subdirectories
	// up front and new ones as they appear.
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != w.root {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			w.logger.WarnContext(ctx, "watch add failed",
				slog.String("path", path),
				slog.String("error", addErr.Error()))
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the watch loop to exit. Idempotent;
// a stopped watcher cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WarnContext(ctx, "watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	key := filepath.ToSlash(rel)

	switch {
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if addErr := w.watcher.Add(event.Name); addErr != nil {
				w.logger.WarnContext(ctx, "watch add failed",
					slog.String("path", event.Name),
					slog.String("error", addErr.Error()))
			}
			return
		}
		if w.debounced(event.Name) {
			return
		}
		data, err := os.ReadFile(event.Name)
		if err != nil {
			return
		}
		w.bus.Publish(ctx, NewUpdate(w.storeID, "", key, string(data)))
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.bus.Publish(ctx, NewRemove(w.storeID, "", key))
	}
}

// debounced reports whether a write to path arrived within the debounce
// window of the previous one. Atomic saves surface as a rename-create pair
// on some platforms; the window collapses them to one signal.
func (w *Watcher) debounced(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if last, ok := w.debounce[path]; ok && now.Sub(last) < w.debounceDur {
		return true
	}
	w.debounce[path] = now
	return false
}
