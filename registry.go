// File: cuculi/config/registry.go
package config

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry caches one Loader per named configuration and environment inside a
// shared directory, e.g. config/settings.yaml and config/scoring.yaml with their
// environment overrides in config/environments/. Several environments of the same
// name stay cached side by side; only Reload goes back to disk.
//
// Named configurations share the environments directory, so an override file
// applies to every name loaded for that environment.
type Registry struct {
	dir  string
	opts []Option

	mu      sync.Mutex
	loaders map[registryKey]*Loader
}

type registryKey struct {
	name string
	env  string
}

// NewRegistry creates a registry over dir. opts apply to every loader it creates.
func NewRegistry(dir string, opts ...Option) *Registry {
	return &Registry{
		dir:     dir,
		opts:    opts,
		loaders: make(map[registryKey]*Loader),
	}
}

// Loader returns the cached loader for name in env, creating it on first use.
func (r *Registry) Loader(name, env string) (*Loader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{name: name, env: env}
	if l, ok := r.loaders[key]; ok {
		return l, nil
	}

	opts := append([]Option{}, r.opts...)
	opts = append(opts, WithDir(r.dir), WithName(name))
	l, err := New(opts...)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", name, err)
	}
	r.loaders[key] = l
	return l, nil
}

// Load returns the effective configuration of name for env. Once loaded, the
// snapshot is served from the cache without touching the sources.
func (r *Registry) Load(ctx context.Context, name, env string) (*Snapshot, error) {
	l, err := r.Loader(name, env)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, env)
}

// Reload forces name to be re-read for env, bypassing the cache.
func (r *Registry) Reload(ctx context.Context, name, env string) (*Snapshot, error) {
	l, err := r.Loader(name, env)
	if err != nil {
		return nil, err
	}
	if l.Snapshot() == nil {
		return l.Load(ctx, env)
	}
	return l.Refresh(ctx)
}

// Names returns the configuration names with at least one cached loader.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(r.loaders))
	names := make([]string, 0, len(r.loaders))
	for key := range r.loaders {
		if _, ok := seen[key.name]; ok {
			continue
		}
		seen[key.name] = struct{}{}
		names = append(names, key.name)
	}
	sort.Strings(names)
	return names
}

// Close closes every cached loader.
func (r *Registry) Close() error {
	r.mu.Lock()
	loaders := r.loaders
	r.loaders = make(map[registryKey]*Loader)
	r.mu.Unlock()

	var errs []error
	for key, l := range loaders {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("config %q (env %q): %w", key.name, key.env, err))
		}
	}
	return errors.Join(errs...)
}
