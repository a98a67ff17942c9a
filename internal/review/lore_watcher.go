package review

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hrportal/internal/errors"
)

// LoreWatcher keeps an in-memory copy of the lore file, refreshed on change
type LoreWatcher struct {
	mu sync.RWMutex

	path    string
	content string

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	logger  *errors.Logger
	running bool
}

// NewLoreWatcher creates a watcher for path. The file is read once immediately.
func NewLoreWatcher(path string, debounceDelay time.Duration, logger *errors.Logger) *LoreWatcher {
	if debounceDelay <= 0 {
		debounceDelay = 250 * time.Millisecond
	}
	return &LoreWatcher{
		path:          path,
		content:       LoadLore(path),
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		logger:        logger,
	}
}

// Current returns the most recently loaded lore
func (lw *LoreWatcher) Current() string {
	lw.mu.RLock()
	defer lw.mu.RUnlock()
	return lw.content
}

// Start begins watching the lore file's directory so that atomic replaces and
// deletions are noticed too
func (lw *LoreWatcher) Start() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.running {
		return fmt.Errorf("lore watcher is already running")
	}
	if lw.path == "" {
		return fmt.Errorf("lore file path is empty")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(lw.path)
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil && lw.logger != nil {
			lw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	lw.fsWatcher = watcher
	lw.running = true

	go lw.watchLoop()

	if lw.logger != nil {
		lw.logger.Info("Lore file watcher started", "file", lw.path, "directory", dir)
	}
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (lw *LoreWatcher) Stop() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if !lw.running {
		return nil
	}
	close(lw.stopChan)
	if lw.debounceTimer != nil {
		lw.debounceTimer.Stop()
	}
	lw.running = false

	if err := lw.fsWatcher.Close(); err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	if lw.logger != nil {
		lw.logger.Info("Lore file watcher stopped")
	}
	return nil
}

func (lw *LoreWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-lw.fsWatcher.Events:
			if !ok {
				return
			}
			if lw.isLoreEvent(event) {
				lw.scheduleReload()
			}

		case err, ok := <-lw.fsWatcher.Errors:
			if !ok {
				return
			}
			if lw.logger != nil {
				lw.logger.LogError(err, "Lore watcher error")
			}

		case <-lw.reloadChan:
			lw.reload()

		case <-lw.stopChan:
			return
		}
	}
}

func (lw *LoreWatcher) isLoreEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(lw.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

func (lw *LoreWatcher) scheduleReload() {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.debounceTimer != nil {
		lw.debounceTimer.Stop()
	}
	lw.debounceTimer = time.AfterFunc(lw.debounceDelay, func() {
		select {
		case lw.reloadChan <- struct{}{}:
		default:
		}
	})
}

func (lw *LoreWatcher) reload() {
	content := LoadLore(lw.path)

	lw.mu.Lock()
	changed := content != lw.content
	lw.content = content
	lw.mu.Unlock()

	if changed && lw.logger != nil {
		lw.logger.Info("Lore file reloaded",
			"file", lw.path,
			"fallback", content == FallbackLore,
			"bytes", len(content))
	}
}
