package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaultsAndFile(t *testing.T) {
	p := writeFile(t, `
discord:
  token: abc
  prefix: "!"
repository:
  timeout: 3s
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Discord.Token)
	assert.Equal(t, "!", cfg.Discord.Prefix)
	assert.Equal(t, BackendMemory, cfg.Repository.Backend)
	assert.Equal(t, 3*time.Second, cfg.Repository.Timeout)
	assert.Equal(t, LockLocal, cfg.Lock.Backend)
	assert.Equal(t, EventsNone, cfg.Events.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "discord:\n  token: from-file\n")
	t.Setenv("PBOT_DISCORD_TOKEN", "from-env")
	t.Setenv("PBOT_REPOSITORY_BACKEND", "mongo")
	t.Setenv("PBOT_REPOSITORY_MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Discord.Token)
	assert.Equal(t, BackendMongo, cfg.Repository.Backend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Repository.Mongo.Uri)
}

func TestValidationErrors(t *testing.T) {
	_, err := Load(writeFile(t, "repository:\n  backend: sqlite\ndiscord:\n  token: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Backend")

	_, err = Load(writeFile(t, "discord:\n  token: x\nrepository:\n  backend: mongo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Uri")

	_, err = Load(writeFile(t, "discord:\n  token: x\nlock:\n  backend: redis\n  ttl: 1s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TTL")

	_, err = Load(writeFile(t, "log:\n  level: debug\n"))
	require.Error(t, err, "token is required")
}

func TestExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
