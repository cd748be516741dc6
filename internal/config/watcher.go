package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nulzo/chat-router/internal/platform/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Snapshot is an immutable view of the provider list at one point in time.
// Version increases by one on every successful reload.
type Snapshot struct {
	Version   uint64
	LoadedAt  time.Time
	Providers []ProviderConfig
}

// Watcher holds the current provider snapshot and swaps it when the
// configuration file changes.
type Watcher struct {
	v         *viper.Viper
	mu        sync.RWMutex
	current   Snapshot
	listeners []func(Snapshot)
	debounce  time.Duration
	timer     *time.Timer
}

// NewWatcher wraps an already loaded configuration. It does not watch
// anything until Watch is called.
func NewWatcher(cfg *Config) *Watcher {
	return &Watcher{
		current:  newSnapshot(1, cfg.AI.Providers),
		debounce: 200 * time.Millisecond,
	}
}

// LoadAndWatch loads configuration and starts watching the config file,
// if one was found.
func LoadAndWatch() (*Config, *Watcher, error) {
	cfg, v, err := load()
	if err != nil {
		return nil, nil, err
	}
	w := NewWatcher(cfg)
	w.v = v
	if v.ConfigFileUsed() != "" {
		w.Watch()
	}
	return cfg, w, nil
}

// Watch registers the fsnotify hook on the underlying viper instance.
func (w *Watcher) Watch() {
	if w.v == nil {
		return
	}
	w.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		// editors emit bursts of events for a single save
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timer = time.AfterFunc(w.debounce, func() {
			if err := w.Reload(); err != nil {
				logger.Warn("config reload failed, keeping previous snapshot",
					zap.String("file", e.Name), zap.Error(err))
			}
		})
	})
	w.v.WatchConfig()
	logger.Info("watching configuration", zap.String("file", w.v.ConfigFileUsed()))
}

// Reload re-reads the configuration and publishes a new snapshot.
func (w *Watcher) Reload() error {
	if w.v == nil {
		return fmt.Errorf("watcher has no configuration source")
	}
	if err := w.v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	cfg, err := decode(w.v)
	if err != nil {
		return err
	}
	snap := w.Publish(cfg.AI.Providers)
	logger.Info("configuration reloaded",
		zap.Uint64("version", snap.Version),
		zap.Int("providers", len(snap.Providers)))
	return nil
}

// Publish replaces the provider list and notifies listeners.
func (w *Watcher) Publish(providers []ProviderConfig) Snapshot {
	w.mu.Lock()
	snap := newSnapshot(w.current.Version+1, providers)
	w.current = snap
	listeners := append([]func(Snapshot){}, w.listeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return snap
}

// OnChange registers fn to run after each published snapshot.
func (w *Watcher) OnChange(fn func(Snapshot)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Snapshot returns the current snapshot.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Providers returns a fresh copy of the current provider list.
func (w *Watcher) Providers() []ProviderConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]ProviderConfig(nil), w.current.Providers...)
}

func newSnapshot(version uint64, providers []ProviderConfig) Snapshot {
	return Snapshot{
		Version:   version,
		LoadedAt:  time.Now(),
		Providers: append([]ProviderConfig(nil), providers...),
	}
}

func warnInvalid(id string, err error) {
	logger.Warn("provider disabled: invalid configuration",
		zap.String("provider", id), zap.Error(err))
}
