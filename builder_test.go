// File: cuculi/config/builder_test.go
package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuilder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"scoring.toml":                 "[weights]\nsimilarity = 0.6\n",
		"environments/production.toml": "[weights]\nsimilarity = 0.8\n",
	})

	t.Run("BuildAndLoad", func(t *testing.T) {
		l, err := NewBuilder().
			WithDir(dir).
			WithName("scoring").
			WithEnvironment("production").
			WithLogger(zaptest.NewLogger(t)).
			WithDotEnv(false).
			WithValidator(RequireKeys("weights.similarity")).
			Build()
		require.NoError(t, err)
		defer l.Close()

		v, err := l.Float64("weights.similarity")
		require.NoError(t, err)
		assert.InDelta(t, 0.8, v, 1e-9)
		assert.Equal(t, "production", l.Environment())
	})

	t.Run("BuildWithoutEnvironmentDefersLoading", func(t *testing.T) {
		l, err := NewBuilder().WithDir(dir).WithName("scoring").Build()
		require.NoError(t, err)
		defer l.Close()
		assert.Nil(t, l.Snapshot())
	})

	t.Run("ValidatorFailure", func(t *testing.T) {
		_, err := NewBuilder().
			WithDir(dir).
			WithName("scoring").
			WithEnvironment("").
			WithValidator(func(*Snapshot) error { return errors.New("nope") }).
			Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		_, err := NewBuilder().WithDir(dir).WithFileFormat("ini").Build()
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("ForcedFormat", func(t *testing.T) {
		conf := t.TempDir()
		writeFiles(t, conf, map[string]string{"app.conf": "name = \"nudge\"\n"})

		l, err := NewBuilder().
			WithDir(conf).
			WithName("app").
			WithOptions(WithExtensions(".conf")).
			WithFileFormat(FormatTOML).
			WithEnvironment("").
			Build()
		require.NoError(t, err)
		defer l.Close()

		name, _ := l.String("name")
		assert.Equal(t, "nudge", name)
	})

	t.Run("MustBuildPanics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBuilder().WithDir(t.TempDir()).WithEnvironment("production").MustBuild()
		})
	})
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"EmptyDir", []Option{WithDir("")}},
		{"NameWithSeparator", []Option{WithName("../settings")}},
		{"NoExtensions", []Option{WithExtensions()}},
		{"UnknownFormat", []Option{WithFileFormat("xml")}},
		{"ReservedOverlay", []Option{WithOverlay(LayerBase, "x.yaml")}},
		{"OverlayWithoutPath", []Option{WithOverlay("local", "")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			assert.Error(t, err)
		})
	}

	l, err := New(WithLogger(nil), WithMaxSubscribers(0), WithTagName(""))
	require.NoError(t, err, "zero values fall back to defaults")
	opts := l.Options()
	assert.Equal(t, DefaultMaxSubscribers, opts.MaxSubscribers)
	assert.Equal(t, DefaultTagName, opts.TagName)
	assert.NotNil(t, opts.Logger)
	assert.Equal(t, filepath.Clean(DefaultDir), opts.Dir)
}
