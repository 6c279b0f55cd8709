// File: cuculi/config/convenience.go
package config

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Quick creates a loader over dir and loads env in a single call.
// This is the recommended way to initialize configuration for most applications
func Quick(ctx context.Context, dir, env string, opts ...Option) (*Loader, error) {
	all := append([]Option{WithDir(dir)}, opts...)
	l, err := New(all...)
	if err != nil {
		return nil, err
	}
	if _, err := l.Load(ctx, env); err != nil {
		return nil, err
	}
	return l, nil
}

// MustQuick is like Quick but panics on error
func MustQuick(dir, env string, opts ...Option) *Loader {
	l, err := Quick(context.Background(), dir, env, opts...)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return l
}

// RequireKeys returns a validator that rejects snapshots missing any of paths.
func RequireKeys(paths ...string) ValidatorFunc {
	return func(s *Snapshot) error {
		var missing []string
		for _, path := range paths {
			if !s.Has(path) {
				missing = append(missing, path)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
		}
		return nil
	}
}

// Debug returns a formatted string showing all configuration values and their sources
func (s *Snapshot) Debug() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Configuration Debug Info:\n")
	fmt.Fprintf(&b, "Environment: %q  Revision: %d  Built: %s\n",
		s.environment, s.revision, s.builtAt.Format("2006-01-02T15:04:05.000Z07:00"))

	b.WriteString("Sources (lowest precedence first):\n")
	for _, st := range s.sources {
		status := "missing"
		if st.Present {
			status = fmt.Sprintf("%d bytes, hash %016x", st.Marker.Size, st.Marker.Hash)
		}
		fmt.Fprintf(&b, "  %-12s %s (%s)\n", st.Name, st.Origin, status)
	}

	for _, w := range s.warnings {
		fmt.Fprintf(&b, "Warning: %v\n", w)
	}

	b.WriteString("Current values:\n")
	keys := make([]string, 0, len(s.flat))
	for k := range s.flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, path := range keys {
		origin := s.provenance[path]
		fmt.Fprintf(&b, "  %s = %v  [%s]\n", path, s.flat[path], origin)
	}

	return b.String()
}
