package core_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"acm/internal/core"
	"acm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestService(t *testing.T, hostSettings string) (*core.Service, core.ServiceConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := core.ServiceConfig{
		ConfigDir:    filepath.Join(dir, "config"),
		DataDir:      filepath.Join(dir, "data"),
		CacheDir:     filepath.Join(dir, "cache"),
		HostSettings: hostSettings,
	}
	require.NoError(t, os.MkdirAll(cfg.ConfigDir, 0755))
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0755))

	svc, err := core.NewService(cfg)
	require.NoError(t, err)
	return svc, cfg
}

func TestNewService(t *testing.T) {
	svc, cfg := newTestService(t, "")
	defer svc.Close()

	assert.NotNil(t, svc.Profiles())
	assert.NotNil(t, svc.Vault())
	assert.Nil(t, svc.Host(), "no host settings configured")
	assert.Equal(t, cfg.ConfigDir, svc.ConfigDir())
	assert.Equal(t, "vim", svc.Config().Keybindings)

	ids := []string{}
	for _, l := range svc.Registry().List() {
		ids = append(ids, l.ID())
	}
	assert.Equal(t, []string{"custom", "makersuite"}, ids)
}

func TestService_ApplyWritesHostAndPersists(t *testing.T) {
	hostPath := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(hostPath, []byte(`{"theme":"dark","oai_settings":{"chat_completion_source":"openai"}}`), 0644))

	svc, cfg := newTestService(t, hostPath)
	ctx := context.Background()
	require.NotNil(t, svc.Host())

	res, err := svc.Profiles().Save(core.ProfileInput{Name: "T1", Endpoint: "https://h.test/v1", Key: "k"}, -1)
	require.NoError(t, err)
	_, err = svc.Profiles().Apply(ctx, res.Index)
	require.NoError(t, err)

	data, err := os.ReadFile(hostPath)
	require.NoError(t, err)
	assert.Equal(t, "custom", gjson.GetBytes(data, "oai_settings.chat_completion_source").String())
	assert.Equal(t, "https://h.test/v1", gjson.GetBytes(data, "oai_settings.custom_url").String())
	assert.Equal(t, "dark", gjson.GetBytes(data, "theme").String())

	state, err := svc.Vault().State(ctx)
	require.NoError(t, err)
	require.Len(t, state[domain.SecretKeyCustom], 1)
	assert.True(t, state[domain.SecretKeyCustom][0].Active)

	assert.Equal(t, res.Index, svc.Profiles().ActiveIndex(ctx))
	require.NoError(t, svc.Close())

	reopened, err := core.NewService(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	profiles := reopened.Profiles().Profiles()
	require.Len(t, profiles, 1)
	assert.Equal(t, "T1", profiles[0].Name)
	assert.Equal(t, state[domain.SecretKeyCustom][0].ID, profiles[0].SecretID())
	assert.NotNil(t, reopened.Profiles().LastApplied())
	assert.Equal(t, 0, reopened.Profiles().ActiveIndex(ctx))
}

func TestService_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("poll_attempts: [nope"), 0644))

	_, err := core.NewService(core.ServiceConfig{ConfigDir: dir, DataDir: dir, CacheDir: dir})
	assert.Error(t, err)
}
