// File: cuculi/config/watch.go
package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchMode selects how source changes are detected.
type WatchMode int

const (
	// ModePoll stats every source on each PollInterval tick
	ModePoll WatchMode = iota
	// ModeNotify reacts to filesystem notifications and keeps polling as a fallback
	ModeNotify
)

func (m WatchMode) String() string {
	if m == ModeNotify {
		return "notify"
	}
	return "poll"
}

// WatchOptions configures source watching behavior
type WatchOptions struct {
	// PollInterval for source stat checks (minimum 100ms)
	PollInterval time.Duration

	// Debounce waits this long after the last detected change before reloading
	Debounce time.Duration

	Mode WatchMode
}

// DefaultWatchOptions returns sensible defaults for source watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval: DefaultPollInterval,
		Debounce:     DefaultDebounce,
		Mode:         ModePoll,
	}
}

// watcher manages watching state. All fields except cancel and done are
// owned by the run goroutine.
type watcher struct {
	cancel context.CancelFunc
	done   chan struct{}
	opts   WatchOptions
	log    *zap.Logger

	seen        map[string]observed // origin -> last observed marker
	lastFailure uint64              // fingerprint of the sources that last failed to load
}

type observed struct {
	marker  Marker
	present bool
}

// Watch starts a background goroutine that reloads the configuration when a
// source changes. The loader must have been loaded first. The goroutine stops
// when ctx is cancelled, on StopWatch, or on Close. A failed reload keeps the
// previous snapshot, is logged and published, and is retried on the next cycle.
func (l *Loader) Watch(ctx context.Context, opts WatchOptions) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if l.current.Load() == nil {
		return ErrNotLoaded
	}

	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}

	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	if l.watcher != nil && l.watcher.running() {
		return ErrAlreadyWatching
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &watcher{
		cancel: cancel,
		done:   make(chan struct{}),
		opts:   opts,
		log:    l.log.With(zap.Stringer("mode", opts.Mode)),
		seen:   make(map[string]observed),
	}
	l.watcher = w

	go w.run(wctx, l)

	l.log.Info("watching configuration sources",
		zap.Stringer("mode", opts.Mode),
		zap.Duration("poll_interval", opts.PollInterval),
		zap.Duration("debounce", opts.Debounce))
	return nil
}

// StopWatch stops the watcher and waits briefly for its goroutine to exit.
// A reload already in progress is allowed to complete.
func (l *Loader) StopWatch() {
	l.watchMu.Lock()
	w := l.watcher
	l.watcher = nil
	l.watchMu.Unlock()

	if w == nil {
		return
	}
	w.cancel()

	select {
	case <-w.done:
	case <-time.After(ShutdownTimeout):
		l.log.Warn("watcher did not stop within timeout", zap.Duration("timeout", ShutdownTimeout))
	}
}

// IsWatching returns true if the watch goroutine is running
func (l *Loader) IsWatching() bool {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	return l.watcher != nil && l.watcher.running()
}

func (w *watcher) running() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// run is the main watching loop
func (w *watcher) run(ctx context.Context, l *Loader) {
	defer close(w.done)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	var fsEvents <-chan fsnotify.Event
	var fsErrors <-chan error
	if w.opts.Mode == ModeNotify {
		fsw, err := w.notifier(l)
		if err != nil {
			w.log.Warn("filesystem notifications unavailable, polling only", zap.Error(err))
		} else {
			defer fsw.Close()
			fsEvents = fsw.Events
			fsErrors = fsw.Errors
		}
	}

	var debounce *time.Timer
	var debounceC <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	// pending is the fingerprint the debounce timer was armed for; an
	// unchanged observation does not push the reload further out.
	var pending uint64
	trigger := func(fingerprint uint64) {
		if w.opts.Debounce == 0 {
			w.reload(ctx, l)
			return
		}
		if debounceC != nil && fingerprint == pending {
			return
		}
		pending = fingerprint
		if debounce == nil {
			debounce = time.NewTimer(w.opts.Debounce)
		} else {
			debounce.Reset(w.opts.Debounce)
		}
		debounceC = debounce.C
	}

	for {
		// no new cycle once cancelled, even if other cases are ready
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if changed, fingerprint := w.detect(l); changed {
				trigger(fingerprint)
			}

		case ev, ok := <-fsEvents:
			if !ok {
				fsEvents = nil
				continue
			}
			w.log.Debug("filesystem event", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			if changed, fingerprint := w.detect(l); changed {
				trigger(fingerprint)
			}

		case err, ok := <-fsErrors:
			if !ok {
				fsErrors = nil
				continue
			}
			w.log.Warn("filesystem watcher error", zap.Error(err))

		case <-debounceC:
			debounceC = nil
			w.reload(ctx, l)
		}
	}
}

// notifier watches every directory that holds a source, so that files created
// or replaced by rename are noticed too.
func (w *watcher) notifier(l *Loader) (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := map[string]bool{
		l.opts.Dir: true,
		filepath.Join(l.opts.Dir, EnvironmentsDir): true,
	}
	for _, ov := range l.opts.Overlays {
		dirs[filepath.Dir(ov.Origin)] = true
	}

	added := 0
	for dir := range dirs {
		if !isDir(dir) {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.log.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		added++
	}
	if added == 0 {
		fsw.Close()
		return nil, os.ErrNotExist
	}
	return fsw, nil
}

// detect compares the sources on disk with the ones the active snapshot was
// built from. It also returns a fingerprint of what it observed.
func (w *watcher) detect(l *Loader) (bool, uint64) {
	snap := l.current.Load()
	if snap == nil {
		return false, 0
	}

	env := l.Environment()
	changed := env != snap.environment

	expected := l.sources(env)
	if l.opts.DotEnv {
		expected = append(expected, Source{Name: DotEnvFile, Origin: l.dotEnvPath()})
	}

	var fingerprint uint64 = 17
	for _, src := range expected {
		recorded, known := snap.sourceByName(src.Name)
		if !known || recorded.Origin != src.Origin {
			// a different extension now resolves, or the layer is new
			changed = true
		}

		prev := w.seen[src.Origin]
		marker, present, err := statMarker(src.Origin, prev.marker, prev.present)
		if err != nil {
			w.log.Debug("cannot stat source", zap.String("origin", src.Origin), zap.Error(err))
			continue
		}
		w.seen[src.Origin] = observed{marker: marker, present: present}

		fingerprint = fingerprint*31 + marker.Hash
		if present {
			fingerprint++
		}

		if known && recorded.Origin == src.Origin {
			if present != recorded.Present || (present && !marker.Equal(recorded.Marker)) {
				changed = true
			}
		}
	}

	return changed, fingerprint
}

// reload refreshes the loader. The refresh runs detached from ctx so that
// cancellation cannot abandon a snapshot that is already being built.
func (w *watcher) reload(ctx context.Context, l *Loader) {
	if ctx.Err() != nil {
		return
	}

	changed, fingerprint := w.detect(l)
	if !changed {
		return // reverted during the debounce window
	}

	snap, installed, err := l.refresh(context.WithoutCancel(ctx), nil)
	if err != nil {
		if fingerprint != w.lastFailure {
			w.log.Error("configuration reload failed, keeping previous snapshot",
				zap.Uint64("revision", l.currentRevision()),
				zap.Error(err))
			w.lastFailure = fingerprint
		} else {
			w.log.Debug("configuration still invalid", zap.Error(err))
		}
		return
	}

	w.lastFailure = 0
	if installed {
		w.log.Info("configuration reloaded", zap.Uint64("revision", snap.revision))
	}
}
