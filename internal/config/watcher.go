package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

// Intervals publishes the scheduler intervals currently in effect. The
// Watcher updates it on every successful reload; the fetcher and collector
// loops read it before arming each tick, so an interval change takes effect
// without a restart.
type Intervals struct {
	mu           sync.Mutex
	poolFetch    time.Duration
	metricsFetch time.Duration
}

// NewIntervals seeds the published intervals from the initial config.
func NewIntervals(s SchedulerCfg) *Intervals {
	i := &Intervals{}
	i.update(s)
	return i
}

func (i *Intervals) update(s SchedulerCfg) {
	i.mu.Lock()
	i.poolFetch = time.Duration(s.PoolFetchInterval) * time.Second
	i.metricsFetch = time.Duration(s.MetricsFetchInterval) * time.Millisecond
	i.mu.Unlock()
}

// PoolFetch returns the membership-fetch interval currently in effect.
func (i *Intervals) PoolFetch() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.poolFetch
}

// MetricsFetch returns the metrics-scrape interval currently in effect.
func (i *Intervals) MetricsFetch() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.metricsFetch
}

// Watcher watches config.yaml for changes, reacting immediately to
// filesystem write events and falling back to a periodic poll on
// global.interval seconds in case an event is missed — e.g. on network
// volumes, or an editor's atomic rename replacing the watched inode.
type Watcher struct {
	path     string
	store    *pool.Store
	interval time.Duration

	// OnReload, if set, is called after every successful reload with the
	// added/updated/removed pool keys, for logging or event broadcast.
	OnReload func(added, updated, removed []string)

	// Intervals, if set, is refreshed with the scheduler intervals of every
	// successfully loaded config.
	Intervals *Intervals
}

// NewWatcher builds a Watcher over path, resyncing the Store on
// interval as a fallback to fsnotify events.
func NewWatcher(path string, store *pool.Store, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultConfigPollInterval * time.Second
	}
	return &Watcher{path: path, store: store, interval: interval}
}

// Run blocks, applying path's configuration to the Store on every detected
// change and every interval tick, until ctx is cancelled. A load/validate
// failure is logged and the previous, already-applied configuration is
// retained.
func (w *Watcher) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("config watcher: fsnotify init failed, falling back to poll-only", "error", err)
	} else {
		defer watcher.Close()
		dir := filepath.Dir(w.path)
		if err := watcher.Add(dir); err != nil {
			slog.Error("config watcher: failed to watch directory", "dir", dir, "error", err)
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.reload()
	for {
		var events <-chan fsnotify.Event
		var errs <-chan error
		if watcher != nil {
			events, errs = watcher.Events, watcher.Errors
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reload()
		case ev, ok := <-events:
			if !ok {
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.reload()
			}
		case err, ok := <-errs:
			if !ok {
				continue
			}
			slog.Warn("config watcher: fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	f, err := Load(w.path)
	if err != nil {
		slog.Error("config reload failed, retaining previous configuration", "path", w.path, "error", err)
		return
	}

	if w.Intervals != nil {
		w.Intervals.update(f.Scheduler)
	}

	desired := ResolvePoolConfigs(f)
	// A configured pool that ResolvePoolConfigs skipped keeps its current
	// configuration; ApplyConfigDiff would otherwise remove it.
	resolved := make(map[string]bool, len(desired))
	for _, cfg := range desired {
		resolved[cfg.Key()] = true
	}
	for _, pc := range f.Pools {
		if resolved[pc.Key()] {
			continue
		}
		if p, ok := w.store.Get(pc.Key()); ok {
			desired = append(desired, p.Config())
		}
	}
	added, updated, removed := w.store.ApplyConfigDiff(desired)
	if len(added) > 0 || len(updated) > 0 || len(removed) > 0 {
		slog.Info("config reload applied", "added", added, "updated", updated, "removed", removed)
	}
	if w.OnReload != nil {
		w.OnReload(added, updated, removed)
	}
}
