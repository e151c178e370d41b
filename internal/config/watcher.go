// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces the burst of events an editor emits when it
// rewrites a file.
const defaultDebounce = 200 * time.Millisecond

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher hot-reloads the configuration file so a rotated credential
// reaches in-flight clients without a restart. It watches the config
// directory rather than the file itself, surviving the rename-and-replace
// dance editors and provisioning tools do.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	onReload func(*Config)

	mu      sync.RWMutex
	current *Config

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher seeded with the already-loaded config.
func NewWatcher(path string, initial *Config, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     path,
		watcher:  fw,
		debounce: defaultDebounce,
		logger:   logger.With("component", "config"),
		current:  initial,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// OnReload registers a callback invoked after each successful reload.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.onReload = fn
}

// Start begins watching for changes.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents()
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// Config returns the current configuration snapshot.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Token returns the current bearer credential. Satisfies
// backend.TokenProvider.
func (w *Watcher) Token() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Server.Token
}

// processEvents debounces change events and reloads the file.
func (w *Watcher) processEvents() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

// reload re-reads the file, keeping the previous config on any failure.
func (w *Watcher) reload() {
	cfg, err := LoadFrom(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous", "error", err)
		return
	}

	w.mu.Lock()
	tokenChanged := w.current.Server.Token != cfg.Server.Token
	w.current = cfg
	w.mu.Unlock()

	if tokenChanged {
		w.logger.Info("credential rotated")
	}
	w.logger.Debug("config reloaded", "path", w.path)

	if w.onReload != nil {
		w.onReload(cfg)
	}
}
