package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terminalnator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
profiles_file: /var/lib/terminalnator/profiles.json
max_sessions: 4
connect_timeout: 10s
command_timeout: 90
idle_timeout: 5m
strict: true
disable_paging: false
ssh:
  legacy_algorithms: true
  insecure_ignore_host_key: true
snmp:
  community: netops
metrics_addr: ":9273"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/terminalnator/profiles.json", cfg.ProfilesFile)
	assert.Equal(t, BackendFile, cfg.ProfileBackend)
	assert.Equal(t, 4, cfg.MaxSessions)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout.Std())
	assert.Equal(t, 90*time.Second, cfg.CommandTimeout.Std())
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout.Std())
	assert.True(t, cfg.Strict)
	assert.False(t, cfg.PagingDisabled())
	assert.True(t, cfg.SSH.LegacyAlgorithms)
	assert.Equal(t, "netops", cfg.SNMP.Community)
	assert.Equal(t, 161, cfg.SNMP.Port, "unset keys keep defaults")
	assert.Equal(t, ":9273", cfg.MetricsAddr)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.PagingDisabled())
	assert.Equal(t, 1<<20, cfg.MaxBuffer)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout.Std())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad backend", "profile_backend: sqlite\n", "profile_backend"},
		{"redis without addr", "profile_backend: redis\n", "redis.addr"},
		{"bad log level", "log_level: chatty\n", "log_level"},
		{"negative sessions", "max_sessions: -1\n", "max_sessions"},
		{"negative timeout", "command_timeout: -5s\n", "command_timeout"},
		{"bad duration", "idle_timeout: soon\n", "invalid duration"},
		{"snmp port", "snmp:\n  port: 0\n", "snmp.port"},
		{"known hosts", "ssh:\n  known_hosts: \"\"\n", "ssh.known_hosts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRedisBackend(t *testing.T) {
	cfg, err := Load(writeConfig(t, "profile_backend: Redis\nredis:\n  addr: 127.0.0.1:6379\n  db: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.ProfileBackend)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "terminalnator:", cfg.Redis.Prefix)
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.yaml")
	present := filepath.Join(dir, "terminalnator.yaml")
	require.NoError(t, os.WriteFile(present, []byte("{}"), 0600))

	path, err := Find([]string{missing, present})
	require.NoError(t, err)
	assert.Equal(t, present, path)

	_, err = Find([]string{missing})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveExplicit(t *testing.T) {
	path := writeConfig(t, "max_sessions: 2\n")
	cfg, used, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, 2, cfg.MaxSessions)

	_, _, err = Resolve(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSearchPaths(t *testing.T) {
	paths := SearchPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, filepath.Join(".", "terminalnator.yaml"), paths[0])
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".ssh", "known_hosts"), expandHome("~/.ssh/known_hosts"))
	assert.Equal(t, "/etc/x", expandHome("/etc/x"))
}
