package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9090", cfg.Server)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "all", cfg.ICEPolicy)
	assert.Len(t, cfg.ICEServers, 5)
	assert.True(t, cfg.Loop)
	assert.False(t, cfg.Grid)
}

func TestLoadConfig_FlagsAndEnv(t *testing.T) {
	t.Setenv("ACASO_EMAIL", "env@example.com")
	t.Setenv("ACASO_RECORD_DIR", "/tmp/rec")

	cfg, err := loadConfig([]string{
		"--server", "https://chat.example.com",
		"--timeout", "3s",
		"--ice-server", "stun:stun.example.com:3478,turn:turn.example.com:3478",
		"--turn-username", "u",
		"--turn-credential", "p",
		"--grid",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.Server)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "env@example.com", cfg.Email)
	assert.Equal(t, "/tmp/rec", cfg.RecordDir)
	assert.True(t, cfg.Grid)

	pc := cfg.peerConfig("tok")
	assert.Equal(t, "tok", pc.Token)
	assert.Equal(t, "/tmp/rec", pc.RecordDir)
	require.Len(t, pc.ICEServers, 2)
	assert.Empty(t, pc.ICEServers[0].Username)
	assert.Equal(t, "u", pc.ICEServers[1].Username)
	assert.Equal(t, "p", pc.ICEServers[1].Credential)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := loadConfig([]string{"--ice-policy", "sometimes"})
	assert.Error(t, err)

	_, err = loadConfig([]string{"--no-such-flag"})
	assert.Error(t, err)
}
