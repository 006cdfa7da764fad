package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the linking section of a configuration file when it
// changes on disk
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  LinkingConfig
	mu       sync.RWMutex
	onChange []func(LinkingConfig)
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	debounce time.Duration
}

// NewWatcher creates a watcher seeded with the current linking defaults
func NewWatcher(path string, current LinkingConfig, logger *zap.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so atomic saves (write then rename) are seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &Watcher{
		path:     path,
		watcher:  watcher,
		current:  current,
		logger:   logger,
		stopCh:   make(chan struct{}),
		debounce: 500 * time.Millisecond,
	}, nil
}

// Start begins watching for configuration changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching for configuration changes
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.logger.Info("Configuration watcher stopped")
	})
}

// OnChange registers a callback for configuration changes
func (w *Watcher) OnChange(handler func(LinkingConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Current returns the linking defaults in effect
func (w *Watcher) Current() LinkingConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) watchLoop() {
	// Editors emit several events per save
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	w.mu.RLock()
	old := w.current
	w.mu.RUnlock()

	next, err := LoadLinking(w.path, old)
	if err != nil {
		w.logger.Error("Invalid linking configuration, keeping current", zap.Error(err))
		return
	}
	if next == old {
		return
	}

	w.mu.Lock()
	w.current = next
	handlers := append([]func(LinkingConfig){}, w.onChange...)
	w.mu.Unlock()

	w.logger.Info("Linking configuration reloaded",
		zap.Float64("minSimilarity", next.MinSimilarity),
		zap.Int("maxLinks", next.MaxLinks),
		zap.String("ordering", next.Ordering),
		zap.Int("batchSize", next.BatchSize),
		zap.Int("parallelism", next.Parallelism),
	)
	for _, handler := range handlers {
		handler(next)
	}
}
