// File: cuculi/config/decode_test.go
package config

import (
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scanFixture = `
server:
  host: 0.0.0.0
  port: "8080"
  read_timeout: 15s
  write_timeout: 30
  allowed_ips: 10.0.0.1
  subnet: 10.0.0.0/8
  endpoint: https://api.example.com/v1
  started: 2024-01-02T03:04:05Z
  tags: a,b,c
  ignored: true
`

type scanServer struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	AllowedIP    net.IP        `yaml:"allowed_ips"`
	Subnet       *net.IPNet    `yaml:"subnet"`
	Endpoint     url.URL       `yaml:"endpoint"`
	Started      time.Time     `yaml:"started"`
	Tags         []string      `yaml:"tags"`
}

func TestScan(t *testing.T) {
	snap := loadSnapshot(t, map[string]string{"settings.yaml": scanFixture}, "")

	var server scanServer
	require.NoError(t, snap.Scan("server", &server))

	assert.Equal(t, "0.0.0.0", server.Host)
	assert.Equal(t, 8080, server.Port, "weakly typed input converts numeric strings")
	assert.Equal(t, 15*time.Second, server.ReadTimeout)
	assert.Equal(t, 30*time.Second, server.WriteTimeout, "bare numbers are seconds")
	assert.Equal(t, "10.0.0.1", server.AllowedIP.String())
	require.NotNil(t, server.Subnet)
	assert.Equal(t, "10.0.0.0/8", server.Subnet.String())
	assert.Equal(t, "api.example.com", server.Endpoint.Host)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), server.Started.UTC())
	assert.Equal(t, []string{"a", "b", "c"}, server.Tags)
}

func TestScanWholeSnapshot(t *testing.T) {
	snap := loadSnapshot(t, map[string]string{"settings.yaml": scanFixture}, "")

	var all struct {
		Server struct {
			Host string `yaml:"host"`
		} `yaml:"server"`
	}
	require.NoError(t, snap.Scan("", &all))
	assert.Equal(t, "0.0.0.0", all.Server.Host)

	var asMap map[string]any
	require.NoError(t, snap.Scan("server", &asMap))
	assert.Equal(t, true, asMap["ignored"])
}

func TestScanErrors(t *testing.T) {
	snap := loadSnapshot(t, map[string]string{"settings.yaml": scanFixture}, "")

	var server scanServer
	assert.Error(t, snap.Scan("server", server), "non-pointer target")
	assert.Error(t, snap.Scan("server", (*scanServer)(nil)), "nil pointer target")
	assert.Error(t, snap.Scan("server.host", &server), "non-mapping section")

	var invalid struct {
		AllowedIP net.IP `yaml:"allowed_ips"`
	}
	bad := loadSnapshot(t, map[string]string{"settings.yaml": "server:\n  allowed_ips: not-an-ip\n"}, "")
	assert.Error(t, bad.Scan("server", &invalid))
}

func TestScanZeroesTarget(t *testing.T) {
	snap := loadSnapshot(t, map[string]string{"settings.yaml": "limits:\n  rps: 10\n"}, "")

	target := map[string]any{"stale": true}
	require.NoError(t, snap.Scan("limits", &target))
	assert.Equal(t, map[string]any{"rps": int64(10)}, target)

	var absent struct {
		Burst int `yaml:"burst"`
	}
	absent.Burst = 5
	require.NoError(t, snap.Scan("missing", &absent))
	assert.Equal(t, 5, absent.Burst, "an absent section leaves fields it does not mention")
}

func TestScanTagName(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"settings.toml": "[db]\nmax_conns = 4\n"})

	l := newTestLoader(t, dir, WithTagName("toml"))
	_, err := l.Load(t.Context(), "")
	require.NoError(t, err)

	var db struct {
		MaxConns int `toml:"max_conns"`
	}
	require.NoError(t, l.Scan("db", &db))
	assert.Equal(t, 4, db.MaxConns)
}
