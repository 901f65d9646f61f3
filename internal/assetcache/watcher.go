package assetcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lance13c/shopassist/internal/logging"
)

// Watcher reinstalls the registration when files under the asset directory
// change. Each reinstall uses a new cache version "<base>-<n>", so the
// activation step drops the previous cache.
type Watcher struct {
	reg      *Registration
	dir      string
	base     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu         sync.Mutex
	isWatching bool
	closed     bool
	pending    map[string]time.Time
	generation int

	onInstall func(w *Worker, err error)
}

// NewWatcher creates a watcher over dir; base is the version prefix
func NewWatcher(reg *Registration, dir, base string, debounce time.Duration) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to watch assets: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to watch assets: %s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		reg:      reg,
		dir:      dir,
		base:     base,
		debounce: debounce,
		watcher:  fsw,
		pending:  make(map[string]time.Time),
	}, nil
}

// OnInstall sets a callback run after every reinstall attempt
func (w *Watcher) OnInstall(fn func(worker *Worker, err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onInstall = fn
}

// Start watches until ctx is done
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isWatching {
		w.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	w.isWatching = true
	w.mu.Unlock()
	defer w.Stop()

	if err := w.addWatchPaths(); err != nil {
		return fmt.Errorf("failed to add watch paths: %w", err)
	}

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	logging.Info("Watching %s for asset changes (debounce: %v)", w.dir, w.debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if w.shouldIgnore(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.watcher.Add(event.Name)
				}
			}

			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logging.Warn("Asset watcher error: %v", err)

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// Stop closes the underlying fsnotify watcher
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.isWatching = false
	w.watcher.Close()
	logging.Debug("Asset watcher stopped")
}

func (w *Watcher) addWatchPaths() error {
	return filepath.Walk(w.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.dir && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logging.Warn("Could not watch directory %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) shouldIgnore(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}
	base := filepath.Base(event.Name)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".tmp")
}

// processPending reinstalls once the newest change is older than the debounce
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	var latest time.Time
	for _, at := range w.pending {
		if at.After(latest) {
			latest = at
		}
	}
	if time.Since(latest) < w.debounce {
		w.mu.Unlock()
		return
	}
	changed := len(w.pending)
	w.pending = make(map[string]time.Time)
	w.generation++
	version := fmt.Sprintf("%s-%d", w.base, w.generation)
	callback := w.onInstall
	w.mu.Unlock()

	logging.Info("%d asset file(s) changed, installing %s", changed, version)
	worker, err := w.reg.Install(ctx, version)
	if err != nil {
		logging.Error("Reinstall failed: %v", err)
	}
	if callback != nil {
		callback(worker, err)
	}
}
