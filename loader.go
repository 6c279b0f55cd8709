// File: cuculi/config/loader.go
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Loader owns one cached configuration snapshot and keeps it current.
//
// Readers go through an atomic pointer and never block on I/O. Refresh builds a
// new snapshot off to the side and installs it with a single pointer swap; the
// swap is serialized and ordered by the refresh start ticket, so an older
// refresh that finishes late is discarded instead of rolling the cache back.
type Loader struct {
	opts Options
	log  *zap.Logger

	current atomic.Pointer[Snapshot]

	stateMu     sync.Mutex // guards environment and nextTicket; taken before swapMu
	environment string
	nextTicket  uint64

	swapMu    sync.Mutex // guards installed and revision
	installed uint64
	revision  uint64

	hub *hub

	watchMu sync.Mutex
	watcher *watcher

	closed atomic.Bool
}

// New creates a loader from functional options. Nothing is read until Load.
func New(opts ...Option) (*Loader, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newLoader(o)
}

func newLoader(o Options) (*Loader, error) {
	o.Extensions = append([]string(nil), o.Extensions...)
	o.Overlays = append([]Overlay(nil), o.Overlays...)
	o.Validators = append([]ValidatorFunc(nil), o.Validators...)
	if err := o.validate(); err != nil {
		return nil, err
	}

	return &Loader{
		opts: o,
		log:  o.Logger.Named("config").With(zap.String("name", o.Name)),
		hub:  newHub(o.MaxSubscribers),
	}, nil
}

// Load returns the effective configuration for env. If the active snapshot
// already belongs to env it is returned as is; otherwise the loader switches
// to env and reads its sources. An env without an override source is not an
// error: the base configuration is used and an *UnmatchedEnvironmentWarning is
// logged and recorded on the snapshot. An empty env means base only.
func (l *Loader) Load(ctx context.Context, env string) (*Snapshot, error) {
	if snap, ok := l.reselect(env); ok {
		return snap, nil
	}
	if env != "" && !isValidKeySegment(env) {
		return nil, fmt.Errorf("invalid environment name %q", env)
	}

	snap, installed, err := l.refresh(ctx, &env)
	if err != nil {
		return nil, err
	}
	if !installed {
		return l.current.Load(), nil
	}

	for _, w := range snap.warnings {
		var unmatched *UnmatchedEnvironmentWarning
		if errors.As(w, &unmatched) {
			l.log.Warn("environment override not found, using base configuration",
				zap.String("env", unmatched.Environment),
				zap.String("searched", unmatched.Searched))
		}
	}
	return snap, nil
}

// Refresh re-reads every source of the current environment and installs the
// result if it was built without error. On failure the active snapshot is
// kept and the error is returned. The returned snapshot is the active one
// after the call, which may be a newer one installed by a concurrent refresh.
func (l *Loader) Refresh(ctx context.Context) (*Snapshot, error) {
	if _, _, err := l.refresh(ctx, nil); err != nil {
		return nil, err
	}
	return l.current.Load(), nil
}

// Snapshot returns the active snapshot, or nil before the first load.
func (l *Loader) Snapshot() *Snapshot {
	return l.current.Load()
}

// Environment returns the environment selected by the last Load.
func (l *Loader) Environment() string {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.environment
}

// Options returns a copy of the loader options.
func (l *Loader) Options() Options {
	o := l.opts
	o.Extensions = append([]string(nil), l.opts.Extensions...)
	o.Overlays = append([]Overlay(nil), l.opts.Overlays...)
	o.Validators = append([]ValidatorFunc(nil), l.opts.Validators...)
	return o
}

// Get returns the value at path from the active snapshot without any I/O.
func (l *Loader) Get(path string) (any, error) {
	snap, err := l.active()
	if err != nil {
		return nil, err
	}
	return snap.Get(path)
}

// Has reports whether path is present in the active snapshot.
func (l *Loader) Has(path string) bool {
	snap := l.current.Load()
	return snap != nil && snap.Has(path)
}

// String returns a string value from the active snapshot.
func (l *Loader) String(path string) (string, error) {
	snap, err := l.active()
	if err != nil {
		return "", err
	}
	return snap.String(path)
}

// Int64 returns an integer value from the active snapshot.
func (l *Loader) Int64(path string) (int64, error) {
	snap, err := l.active()
	if err != nil {
		return 0, err
	}
	return snap.Int64(path)
}

// Bool returns a boolean value from the active snapshot.
func (l *Loader) Bool(path string) (bool, error) {
	snap, err := l.active()
	if err != nil {
		return false, err
	}
	return snap.Bool(path)
}

// Float64 returns a float value from the active snapshot.
func (l *Loader) Float64(path string) (float64, error) {
	snap, err := l.active()
	if err != nil {
		return 0, err
	}
	return snap.Float64(path)
}

// Duration returns a duration value from the active snapshot.
func (l *Loader) Duration(path string) (time.Duration, error) {
	snap, err := l.active()
	if err != nil {
		return 0, err
	}
	return snap.Duration(path)
}

// StringSlice returns a string sequence from the active snapshot.
func (l *Loader) StringSlice(path string) ([]string, error) {
	snap, err := l.active()
	if err != nil {
		return nil, err
	}
	return snap.StringSlice(path)
}

// Scan decodes a section of the active snapshot into target.
func (l *Loader) Scan(basePath string, target any) error {
	snap, err := l.active()
	if err != nil {
		return err
	}
	return snap.Scan(basePath, target)
}

// Subscribe returns a channel of change events and a function that cancels
// the subscription. Slow subscribers miss events rather than block refreshes.
func (l *Loader) Subscribe() (<-chan Event, func(), error) {
	return l.hub.subscribe()
}

// SubscriberCount returns the number of active subscriptions.
func (l *Loader) SubscriberCount() int {
	return l.hub.count()
}

// Close stops watching and closes all subscriptions. The last snapshot stays readable.
func (l *Loader) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.StopWatch()
	l.hub.close()
	return nil
}

func (l *Loader) active() (*Snapshot, error) {
	snap := l.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// begin records the start of a refresh. A non-nil env switches the loader's
// environment. The environment and ticket are taken together so that a
// refresh started after an environment switch always targets the new one.
func (l *Loader) begin(env *string) (string, uint64) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	if env != nil {
		l.environment = *env
	}
	l.nextTicket++
	return l.environment, l.nextTicket
}

// reselect serves Load from the active snapshot when it already belongs to env.
// If an earlier switch to another environment failed or is still in flight, the
// loader is pointed back at env and refreshes started before this call are
// discarded.
func (l *Loader) reselect(env string) (*Snapshot, bool) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.swapMu.Lock()
	defer l.swapMu.Unlock()

	snap := l.current.Load()
	if snap == nil || snap.environment != env {
		return nil, false
	}
	if l.environment != env {
		l.environment = env
		l.nextTicket++
		l.installed = l.nextTicket
	}
	return snap, true
}

// sources enumerates the layers for env, lowest precedence first.
func (l *Loader) sources(env string) []Source {
	srcs := []Source{{
		Name:   LayerBase,
		Rank:   0,
		Origin: locate(filepath.Join(l.opts.Dir, l.opts.Name), l.opts.Extensions),
		Format: l.opts.FileFormat,
	}}

	if env != "" {
		srcs = append(srcs, Source{
			Name:     LayerEnvironment,
			Rank:     environmentRankOffset,
			Origin:   locate(filepath.Join(l.opts.Dir, EnvironmentsDir, env), l.opts.Extensions),
			Format:   l.opts.FileFormat,
			Optional: true,
		})
	}

	for i, ov := range l.opts.Overlays {
		srcs = append(srcs, Source{
			Name:     ov.Name,
			Rank:     firstOverlayRankOffset + i,
			Origin:   ov.Origin,
			Format:   l.opts.FileFormat,
			Optional: true,
		})
	}

	return srcs
}

func (l *Loader) dotEnvPath() string {
	return filepath.Join(l.opts.Dir, DotEnvFile)
}

// refresh builds and installs a snapshot. It returns the snapshot it built,
// whether that snapshot was installed, and any build error.
func (l *Loader) refresh(ctx context.Context, envSwitch *string) (*Snapshot, bool, error) {
	if l.closed.Load() {
		return nil, false, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	env, ticket := l.begin(envSwitch)
	start := time.Now()

	snap, err := l.build(ctx, env)
	if err != nil {
		l.log.Debug("refresh rejected", zap.String("env", env), zap.Error(err))
		l.hub.publish(Event{Kind: EventReloadFailed, Err: err, Revision: l.currentRevision()})
		if errors.Is(err, ErrSourceNotFound) {
			if prev := l.current.Load(); prev != nil {
				if st, ok := prev.sourceByName(LayerBase); ok && st.Present {
					l.hub.publish(Event{Kind: EventSourceRemoved, Path: st.Origin, Revision: prev.revision, Err: err})
				}
			}
		}
		return nil, false, err
	}

	// Past this point the snapshot is complete; it is installed even if ctx
	// has been cancelled meanwhile.
	prev, installed := l.install(snap, ticket)
	if !installed {
		l.log.Debug("refresh superseded by a newer one", zap.String("env", env), zap.Uint64("ticket", ticket))
		return snap, false, nil
	}

	changed := snap.Diff(prev)
	for _, path := range changed {
		l.hub.publish(Event{Kind: EventChanged, Path: path, Revision: snap.revision})
	}

	l.log.Info("configuration loaded",
		zap.String("env", env),
		zap.Uint64("revision", snap.revision),
		zap.Int("keys", len(snap.flat)),
		zap.Int("changed", len(changed)),
		zap.Duration("took", time.Since(start)))

	return snap, true, nil
}

// install swaps snap in unless a refresh that started later is already installed.
func (l *Loader) install(snap *Snapshot, ticket uint64) (*Snapshot, bool) {
	l.swapMu.Lock()
	defer l.swapMu.Unlock()

	if ticket < l.installed {
		return nil, false
	}
	l.installed = ticket
	l.revision++
	snap.revision = l.revision
	return l.current.Swap(snap), true
}

func (l *Loader) currentRevision() uint64 {
	if snap := l.current.Load(); snap != nil {
		return snap.revision
	}
	return 0
}

// build reads every source in parallel and assembles a snapshot. No shared
// state is touched.
func (l *Loader) build(ctx context.Context, env string) (*Snapshot, error) {
	srcs := l.sources(env)
	states := make([]SourceState, len(srcs))
	layers := make([]map[string]any, len(srcs))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			state, tree, err := readSource(src, l.opts.MaxFileSize, l.opts.FileFormat)
			if err != nil {
				return err
			}
			states[i] = state
			layers[i] = tree
			return nil
		})
	}

	var dotenv map[string]string
	var dotenvState SourceState
	if l.opts.DotEnv {
		g.Go(func() error {
			path := l.dotEnvPath()
			marker, present, err := statMarker(path, Marker{}, false)
			if err != nil {
				return &SourceParseError{Source: DotEnvFile, Origin: path, Err: err}
			}
			values, err := readDotEnv(path)
			if err != nil {
				return &SourceParseError{Source: DotEnvFile, Origin: path, Format: "dotenv", Err: err}
			}
			dotenv = values
			dotenvState = SourceState{
				Source:  Source{Name: DotEnvFile, Rank: -1, Origin: path, Format: "dotenv", Optional: true},
				Present: present,
				Marker:  marker,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var warnings []error
	for i, st := range states {
		if st.Present {
			continue
		}
		switch {
		case !srcs[i].Optional:
			return nil, fmt.Errorf("%w: %s source at '%s'", ErrSourceNotFound, st.Name, st.Origin)
		case st.Name == LayerEnvironment:
			warnings = append(warnings, &UnmatchedEnvironmentWarning{
				Environment: env,
				Searched:    filepath.Join(l.opts.Dir, EnvironmentsDir, env+".*"),
			})
		}
	}

	lookup := l.opts.EnvLookup
	if l.opts.DotEnv && len(dotenv) > 0 {
		lookup = chainLookup(l.opts.EnvLookup, dotenv)
	}

	if l.opts.DotEnv {
		states = append([]SourceState{dotenvState}, states...)
		layers = append([]map[string]any{nil}, layers...)
	}

	snap := newSnapshot(env, states, layers, lookup, l.opts.TagName)
	snap.warnings = warnings

	var validationErrs []error
	for _, validate := range l.opts.Validators {
		if err := validate(snap); err != nil {
			validationErrs = append(validationErrs, err)
		}
	}
	if len(validationErrs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %w", errors.Join(validationErrs...))
	}

	return snap, nil
}
