package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events a single save produces.
const reloadDebounce = 100 * time.Millisecond

// HotConfig holds the current Config and swaps it when the file changes.
type HotConfig struct {
	path string

	mu        sync.RWMutex
	cfg       *Config
	listeners []func(*Config)
}

func NewHotConfig(path string) (*HotConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &HotConfig{path: path, cfg: cfg}, nil
}

// Get returns the active config. Callers must not modify it.
func (h *HotConfig) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// OnReload registers fn to run after every successful reload.
func (h *HotConfig) OnReload(fn func(*Config)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Reload re-reads the file. An invalid file keeps the previous config.
func (h *HotConfig) Reload() error {
	next, err := Load(h.path)
	if err != nil {
		slog.Error("config reload failed, keeping previous", "path", h.path, "err", err)
		return err
	}

	h.mu.Lock()
	h.cfg = next
	listeners := make([]func(*Config), len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	slog.Info("🔄 config reloaded", "path", h.path, "backend", next.Backend.URL)
	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

// Watch reloads on changes to the config file until ctx is cancelled.
// The parent directory is watched so replace-by-rename saves and a file
// created after startup are both seen.
func (h *HotConfig) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	dir := filepath.Dir(h.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	go h.watchLoop(ctx, w)
	return nil
}

func (h *HotConfig) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	target := filepath.Clean(h.path)
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDebounce, func() {
				if ctx.Err() == nil {
					_ = h.Reload()
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "err", err)
		}
	}
}
