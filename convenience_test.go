// File: cuculi/config/convenience_test.go
package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuick(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"settings.yaml":                dbBase,
		"environments/production.yaml": "db:\n  host: prod-db\n",
	})

	l, err := Quick(context.Background(), dir, "production", WithDotEnv(false))
	require.NoError(t, err)
	defer l.Close()

	host, _ := l.String("db.host")
	assert.Equal(t, "prod-db", host)

	_, err = Quick(context.Background(), t.TempDir(), "production")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	assert.Panics(t, func() { MustQuick(t.TempDir(), "") })
	assert.NotPanics(t, func() { MustQuick(dir, "").Close() })
}

func TestRequireKeys(t *testing.T) {
	snap := loadSnapshot(t, map[string]string{"settings.yaml": dbBase}, "")

	assert.NoError(t, RequireKeys("db.host", "db.port")(snap))

	err := RequireKeys("db.host", "db.user", "openai.api_key")(snap)
	require.Error(t, err)
	assert.Equal(t, "missing required configuration: db.user, openai.api_key", err.Error())
}
