package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.WebSocket.Address)
	assert.Equal(t, "/ws", cfg.Server.WebSocket.Path)
	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, 60*time.Second, cfg.Battle.DraftPickTimeout)
	assert.Equal(t, 200*time.Second, cfg.Battle.RoundPickTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Battle.ChallengeTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTP.Address)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  websocket:
    address: ":9091"
    path: "/chat"
  http:
    address: ":9090"
battle:
  draft_pick_timeout: 30s
  round_pick_timeout: 90s
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9091", cfg.Server.WebSocket.Address)
	assert.Equal(t, "/chat", cfg.Server.WebSocket.Path)
	assert.Equal(t, ":9090", cfg.Server.HTTP.Address)
	assert.Equal(t, 30*time.Second, cfg.Battle.DraftPickTimeout)
	assert.Equal(t, 90*time.Second, cfg.Battle.RoundPickTimeout)
	// Sections the file leaves out keep their defaults.
	assert.Equal(t, 5*time.Minute, cfg.Battle.ChallengeTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadDatabaseURLEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env:env@db:5432/battles")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env:env@db:5432/battles", cfg.Database.URL)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
