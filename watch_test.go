// File: cuculi/config/watch_test.go
package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fastWatch(mode WatchMode) WatchOptions {
	return WatchOptions{PollInterval: MinPollInterval, Debounce: 50 * time.Millisecond, Mode: mode}
}

func loadedLoader(t *testing.T, files map[string]string, env string, opts ...Option) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)
	l := newTestLoader(t, dir, opts...)
	_, err := l.Load(context.Background(), env)
	require.NoError(t, err)
	return l, dir
}

func TestWatchReloads(t *testing.T) {
	for _, mode := range []WatchMode{ModePoll, ModeNotify} {
		t.Run(mode.String(), func(t *testing.T) {
			l, dir := loadedLoader(t, map[string]string{
				"settings.yaml":                dbBase,
				"environments/production.yaml": "db:\n  host: prod-db\n",
			}, "production")

			events, cancel, err := l.Subscribe()
			require.NoError(t, err)
			defer cancel()

			require.NoError(t, l.Watch(context.Background(), fastWatch(mode)))
			assert.True(t, l.IsWatching())

			writeFiles(t, dir, map[string]string{"environments/production.yaml": "db:\n  host: prod-db-2\n"})

			assert.Eventually(t, func() bool {
				host, _ := l.String("db.host")
				return host == "prod-db-2"
			}, 3*time.Second, 20*time.Millisecond)

			select {
			case ev := <-events:
				assert.Equal(t, EventChanged, ev.Kind)
				assert.Equal(t, "db.host", ev.Path)
			case <-time.After(time.Second):
				t.Fatal("no change event")
			}

			l.StopWatch()
			assert.False(t, l.IsWatching())
		})
	}
}

func TestWatchPicksUpNewOverride(t *testing.T) {
	l, dir := loadedLoader(t, map[string]string{"settings.yaml": dbBase}, "production")
	require.Len(t, l.Snapshot().Warnings(), 1)

	require.NoError(t, l.Watch(context.Background(), fastWatch(ModePoll)))

	writeFiles(t, dir, map[string]string{"environments/production.toml": "[db]\nhost = \"prod-db\"\n"})

	assert.Eventually(t, func() bool {
		host, _ := l.String("db.host")
		return host == "prod-db"
	}, 3*time.Second, 20*time.Millisecond)
	assert.Empty(t, l.Snapshot().Warnings())
}

func TestWatchIgnoresTouch(t *testing.T) {
	l, dir := loadedLoader(t, map[string]string{"settings.yaml": dbBase}, "")
	require.NoError(t, l.Watch(context.Background(), fastWatch(ModePoll)))

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "settings.yaml"), later, later))

	time.Sleep(5 * MinPollInterval)
	assert.Equal(t, uint64(1), l.Snapshot().Revision())
}

func TestWatchKeepsSnapshotOnFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l, dir := loadedLoader(t, map[string]string{"settings.yaml": dbBase}, "", WithLogger(zap.New(core)))
	before := l.Snapshot()

	require.NoError(t, l.Watch(context.Background(), fastWatch(ModePoll)))

	writeFiles(t, dir, map[string]string{"settings.yaml": "db: [broken\n"})

	failed := func() int {
		return logs.FilterMessage("configuration reload failed, keeping previous snapshot").Len()
	}
	assert.Eventually(t, func() bool { return failed() == 1 }, 3*time.Second, 20*time.Millisecond)

	// retried every cycle, but the same failure is reported once
	time.Sleep(5 * MinPollInterval)
	assert.Equal(t, 1, failed())
	assert.Same(t, before, l.Snapshot())

	writeFiles(t, dir, map[string]string{"settings.yaml": "db:\n  host: fixed\n  port: 5432\n"})
	assert.Eventually(t, func() bool {
		host, _ := l.String("db.host")
		return host == "fixed"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatchLifecycle(t *testing.T) {
	t.Run("NotLoaded", func(t *testing.T) {
		l := newTestLoader(t, t.TempDir())
		assert.ErrorIs(t, l.Watch(context.Background(), DefaultWatchOptions()), ErrNotLoaded)
	})

	t.Run("AlreadyWatching", func(t *testing.T) {
		l, _ := loadedLoader(t, map[string]string{"settings.yaml": dbBase}, "")
		require.NoError(t, l.Watch(context.Background(), DefaultWatchOptions()))
		assert.ErrorIs(t, l.Watch(context.Background(), DefaultWatchOptions()), ErrAlreadyWatching)

		l.StopWatch()
		l.StopWatch()
		require.NoError(t, l.Watch(context.Background(), DefaultWatchOptions()), "watch can restart after stop")
	})

	t.Run("ContextCancel", func(t *testing.T) {
		l, dir := loadedLoader(t, map[string]string{"settings.yaml": dbBase}, "")
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, l.Watch(ctx, fastWatch(ModePoll)))

		cancel()
		assert.Eventually(t, func() bool { return !l.IsWatching() }, time.Second, 10*time.Millisecond)

		writeFiles(t, dir, map[string]string{"settings.yaml": "db:\n  host: ignored\n"})
		time.Sleep(3 * MinPollInterval)
		host, _ := l.String("db.host")
		assert.Equal(t, "localhost", host, "no reload after cancellation")
	})

	t.Run("Close", func(t *testing.T) {
		l, _ := loadedLoader(t, map[string]string{"settings.yaml": dbBase}, "")
		require.NoError(t, l.Watch(context.Background(), fastWatch(ModeNotify)))
		require.NoError(t, l.Close())
		assert.False(t, l.IsWatching())
		assert.ErrorIs(t, l.Watch(context.Background(), DefaultWatchOptions()), ErrClosed)
	})

	t.Run("IntervalClamp", func(t *testing.T) {
		l, _ := loadedLoader(t, map[string]string{"settings.yaml": dbBase}, "")
		require.NoError(t, l.Watch(context.Background(), WatchOptions{PollInterval: time.Millisecond}))
		l.watchMu.Lock()
		interval := l.watcher.opts.PollInterval
		l.watchMu.Unlock()
		assert.Equal(t, MinPollInterval, interval)
	})
}
