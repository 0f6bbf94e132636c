package main

import (
	"encoding/json"
	"testing"

	"acm/internal/storage/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSet(t *testing.T) {
	hostPath := setupCLI(t)

	out, err := run(t, "config", "set", "host_settings", hostPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Set host_settings")

	_, err = run(t, "config", "set", "keybindings", "standard")
	require.NoError(t, err)
	_, err = run(t, "config", "set", "log_level", "debug")
	require.NoError(t, err)

	cfg, err := config.Load(configDir)
	require.NoError(t, err)
	assert.Equal(t, hostPath, cfg.HostSettings)
	assert.Equal(t, "standard", cfg.Keybindings)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.DefaultPollAttempts, cfg.PollAttempts)
}

func TestConfigSet_Invalid(t *testing.T) {
	setupCLI(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"host_settings", "/does/not/exist.json"}, "file does not exist"},
		{[]string{"keybindings", "emacs"}, "vim or standard"},
		{[]string{"log_level", "loud"}, "invalid log_level"},
		{[]string{"host_url", "localhost:8000"}, "http://"},
		{[]string{"colour", "red"}, "unknown key"},
	}
	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			_, err := run(t, append([]string{"config", "set"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigShow(t *testing.T) {
	hostPath := setupCLI(t)

	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "keybindings: vim")
	assert.Contains(t, out, "host_settings: "+hostPath)

	out, err = run(t, "config", "show", "--json")
	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cfg), out)
	assert.Equal(t, hostPath, cfg["HostSettings"])
}
