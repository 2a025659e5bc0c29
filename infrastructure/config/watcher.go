package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	domainconfig "constellations/domain/config"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 100 * time.Millisecond

// LayoutChangeFunc receives each successfully reloaded layout config.
type LayoutChangeFunc func(ctx context.Context, cfg *domainconfig.LayoutConfig) error

// LayoutWatcher watches a layout YAML file and reloads it on change
type LayoutWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *domainconfig.LayoutConfig
	mu       sync.RWMutex
	onChange []LayoutChangeFunc
	debounce time.Duration
	logger   *zap.Logger
	reloads  chan struct{}
}

// NewLayoutWatcher loads the initial file and prepares the watcher.
func NewLayoutWatcher(path string, logger *zap.Logger) (*LayoutWatcher, error) {
	cfg, err := LoadLayoutConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial layout config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch layout config: %w", err)
	}

	// Also watch the directory for atomic saves (rename operations)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("Failed to watch layout config directory", zap.Error(err))
	}

	return &LayoutWatcher{
		path:     path,
		watcher:  watcher,
		current:  cfg,
		debounce: DefaultDebounce,
		logger:   logger,
		reloads:  make(chan struct{}, 1),
	}, nil
}

// SetDebounce changes the quiet period before a reload.
func (w *LayoutWatcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// OnChange registers a callback for configuration changes
func (w *LayoutWatcher) OnChange(fn LayoutChangeFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Current returns the last valid configuration
func (w *LayoutWatcher) Current() *domainconfig.LayoutConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Reloads signals after every reload attempt, successful or not.
func (w *LayoutWatcher) Reloads() <-chan struct{} {
	return w.reloads
}

// Run watches until ctx is cancelled. The underlying watcher is closed on
// return.
func (w *LayoutWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	w.logger.Info("Layout config watcher started", zap.String("path", w.path))

	var debounceTimer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			w.logger.Info("Layout config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
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
			debounceTimer = time.NewTimer(w.debounce)
			fire = debounceTimer.C

		case <-fire:
			fire = nil
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the file. An invalid file keeps the current config.
func (w *LayoutWatcher) reload(ctx context.Context) {
	defer w.signal()
	w.logger.Info("Layout config changed, reloading", zap.String("path", w.path))

	// rename-based saves drop the file from the watch list
	_ = w.watcher.Add(w.path)

	next, err := LoadLayoutConfig(w.path)
	if err != nil {
		w.logger.Error("Invalid layout config, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = next
	handlers := append([]LayoutChangeFunc(nil), w.onChange...)
	w.mu.Unlock()

	for _, fn := range handlers {
		if err := fn(ctx, next.Clone()); err != nil {
			w.logger.Error("Layout config handler failed", zap.Error(err))
		}
	}
	w.logger.Info("Layout config reloaded")
}

func (w *LayoutWatcher) signal() {
	select {
	case w.reloads <- struct{}{}:
	default:
	}
}
