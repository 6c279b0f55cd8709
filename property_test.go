// File: cuculi/config/property_test.go
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"pgregory.net/rapid"
)

// propertyDir returns a fresh directory for one rapid iteration.
func propertyDir(t *rapid.T, root string, seq *int) string {
	*seq++
	dir := filepath.Join(root, fmt.Sprintf("case-%d", *seq))
	if err := os.MkdirAll(filepath.Join(dir, EnvironmentsDir), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func writeSection(t *rapid.T, path string, values map[string]int) {
	var b strings.Builder
	if len(values) == 0 {
		b.WriteString("section: {}\n")
	} else {
		b.WriteString("section:\n")
	}
	for k, v := range values {
		fmt.Fprintf(&b, "  %s: %d\n", k, v)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestPropertyOverrideWins(t *testing.T) {
	root := t.TempDir()
	seq := 0

	rapid.Check(t, func(t *rapid.T) {
		dir := propertyDir(t, root, &seq)

		n := rapid.IntRange(1, 12).Draw(t, "keys")
		base := make(map[string]int, n)
		override := make(map[string]int)
		for i := range n {
			key := fmt.Sprintf("k%d", i)
			base[key] = rapid.IntRange(-1000, 1000).Draw(t, key+"_base")
			if rapid.Bool().Draw(t, key+"_overridden") {
				override[key] = rapid.IntRange(-1000, 1000).Draw(t, key+"_override")
			}
		}
		// keys only the override declares
		extra := rapid.IntRange(0, 3).Draw(t, "extra")
		for i := range extra {
			override[fmt.Sprintf("x%d", i)] = i
		}

		writeSection(t, filepath.Join(dir, "settings.yaml"), base)
		writeSection(t, filepath.Join(dir, EnvironmentsDir, "prod.yaml"), override)

		l, err := New(WithDir(dir), WithLogger(zap.NewNop()), WithDotEnv(false))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		defer l.Close()

		snap, err := l.Load(context.Background(), "prod")
		if err != nil {
			t.Fatalf("load: %v", err)
		}

		for key, want := range base {
			if v, ok := override[key]; ok {
				want = v
			}
			got, err := snap.Int64("section." + key)
			if err != nil || got != int64(want) {
				t.Fatalf("section.%s = %d (%v), want %d", key, got, err, want)
			}
		}
		for key, want := range override {
			got, err := snap.Int64("section." + key)
			if err != nil || got != int64(want) {
				t.Fatalf("section.%s = %d (%v), want %d", key, got, err, want)
			}
			if origin, _ := snap.Origin("section." + key); origin != LayerEnvironment {
				t.Fatalf("section.%s origin = %q", key, origin)
			}
		}
		if len(snap.Keys()) != len(base)+extra {
			t.Fatalf("got %d keys, want %d", len(snap.Keys()), len(base)+extra)
		}
	})
}

func TestPropertyNeverDegrades(t *testing.T) {
	root := t.TempDir()
	seq := 0

	rapid.Check(t, func(t *rapid.T) {
		dir := propertyDir(t, root, &seq)
		path := filepath.Join(dir, "settings.yaml")

		writeSection(t, path, map[string]int{"value": 0})
		l, err := New(WithDir(dir), WithLogger(zap.NewNop()), WithDotEnv(false))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		defer l.Close()

		ctx := context.Background()
		if _, err := l.Load(ctx, ""); err != nil {
			t.Fatalf("load: %v", err)
		}

		lastGood := 0
		steps := rapid.IntRange(1, 15).Draw(t, "steps")
		for i := range steps {
			kind := rapid.SampledFrom([]string{"valid", "syntax", "scalar", "removed"}).Draw(t, fmt.Sprintf("step%d", i))
			next := i + 1

			switch kind {
			case "valid":
				writeSection(t, path, map[string]int{"value": next})
			case "syntax":
				os.WriteFile(path, []byte("section: {value: [\n"), 0644)
			case "scalar":
				os.WriteFile(path, []byte("- just\n- a list\n"), 0644)
			case "removed":
				os.Remove(path)
			}

			_, err := l.Refresh(ctx)
			if kind == "valid" {
				if err != nil {
					t.Fatalf("step %d: valid refresh failed: %v", i, err)
				}
				lastGood = next
			} else if err == nil {
				t.Fatalf("step %d: %s source was accepted", i, kind)
			}

			got, err := l.Int64("section.value")
			if err != nil || got != int64(lastGood) {
				t.Fatalf("step %d (%s): value = %d (%v), want %d", i, kind, got, err, lastGood)
			}
		}
	})
}
