// File: cuculi/config/discovery_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"settings.yaml":                "a: 1\n",
		"environments/production.yaml": "a: 2\n",
		"environments/staging.toml":    "a = 3\n",
		"environments/staging.yaml":    "a: 3\n",
		"environments/notes.txt":       "ignored",
		"environments/bad name.yaml":   "a: 4\n",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, EnvironmentsDir, "nested"), 0755))

	names, err := Environments(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"production", "staging"}, names)

	names, err = Environments(dir, []string{".toml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"staging"}, names)

	names, err = Environments(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "settings")

	assert.Equal(t, base+".yaml", locate(base, DefaultExtensions), "falls back to the first extension")

	writeFiles(t, dir, map[string]string{"settings.json": "{}"})
	assert.Equal(t, base+".json", locate(base, DefaultExtensions))

	writeFiles(t, dir, map[string]string{"settings.yml": "a: 1\n"})
	assert.Equal(t, base+".yml", locate(base, DefaultExtensions), "earlier extensions win")
}

func TestDiscoverDir(t *testing.T) {
	t.Run("Explicit", func(t *testing.T) {
		assert.Equal(t, "/etc/app", DiscoverDir("app", "/etc/app"))
	})

	t.Run("EnvironmentVariable", func(t *testing.T) {
		t.Setenv("NUDGE_SVC_CONFIG_DIR", "/srv/nudge")
		assert.Equal(t, "/srv/nudge", DiscoverDir("nudge-svc", ""))
	})

	t.Run("XDG", func(t *testing.T) {
		t.Chdir(t.TempDir())
		home := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", home)
		require.NoError(t, os.Mkdir(filepath.Join(home, "nudge"), 0755))

		assert.Equal(t, filepath.Join(home, "nudge"), DiscoverDir("nudge", ""))
	})

	t.Run("LocalConfigWins", func(t *testing.T) {
		wd := t.TempDir()
		t.Chdir(wd)
		require.NoError(t, os.Mkdir(filepath.Join(wd, DefaultDir), 0755))
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())

		assert.Equal(t, DefaultDir, DiscoverDir("nudge", ""))
	})

	t.Run("Fallback", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		t.Setenv("XDG_CONFIG_DIRS", t.TempDir())
		assert.Equal(t, DefaultDir, DiscoverDir("nudge", ""))
	})
}
