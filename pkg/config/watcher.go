package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ConfigWatcher watches the configuration file and reloads the manager
// when it changes
type ConfigWatcher struct {
	configManager *ConfigManager
	watcher       *fsnotify.Watcher
	logger        *zap.Logger
	watchPath     string
	mu            sync.Mutex
	stopChan      chan struct{}
	stopOnce      sync.Once
	debounceTime  time.Duration
	lastReload    time.Time
}

// NewConfigWatcher creates a new configuration watcher
func NewConfigWatcher(configManager *ConfigManager, logger *zap.Logger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ConfigWatcher{
		configManager: configManager,
		watcher:       watcher,
		logger:        logger,
		stopChan:      make(chan struct{}),
		debounceTime:  500 * time.Millisecond,
	}, nil
}

// SetDebounceTime sets the debounce time for reload events
func (cw *ConfigWatcher) SetDebounceTime(duration time.Duration) {
	cw.mu.Lock()
	cw.debounceTime = duration
	cw.mu.Unlock()
}

// Start watches path and reloads on write or create events
func (cw *ConfigWatcher) Start(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	// editors replace files, so watch the directory
	dir := filepath.Dir(abs)
	if err := cw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	cw.watchPath = abs

	cw.logger.Info("config watcher started", zap.String("path", abs))
	go cw.watchLoop()
	return nil
}

// Stop stops the configuration watcher
func (cw *ConfigWatcher) Stop() {
	cw.stopOnce.Do(func() {
		close(cw.stopChan)
		if err := cw.watcher.Close(); err != nil {
			cw.logger.Warn("error closing file watcher", zap.Error(err))
		}
	})
}

// watchLoop is the main watcher loop
func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleFileEvent(event)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("config watcher error", zap.Error(err))

		case <-cw.stopChan:
			return
		}
	}
}

// handleFileEvent handles file system events
func (cw *ConfigWatcher) handleFileEvent(event fsnotify.Event) {
	abs, err := filepath.Abs(event.Name)
	if err != nil || abs != cw.watchPath {
		return
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	cw.mu.Lock()
	debounce := cw.debounceTime
	sinceLast := time.Since(cw.lastReload)
	cw.mu.Unlock()

	if sinceLast < debounce {
		return
	}

	go func() {
		select {
		case <-time.After(debounce):
			cw.triggerReload()
		case <-cw.stopChan:
		}
	}()
}

// triggerReload triggers a configuration reload
func (cw *ConfigWatcher) triggerReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if time.Since(cw.lastReload) < cw.debounceTime {
		return
	}

	if _, err := os.Stat(cw.watchPath); os.IsNotExist(err) {
		cw.logger.Warn("config file no longer exists", zap.String("path", cw.watchPath))
		return
	}

	if err := cw.configManager.Reload(); err != nil {
		cw.logger.Error("failed to reload configuration", zap.Error(err))
		return
	}

	cw.lastReload = time.Now()
	cw.logger.Info("configuration reloaded", zap.String("path", cw.watchPath))
}
