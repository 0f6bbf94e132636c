package host_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"acm/internal/domain"
	"acm/internal/host"
	"acm/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const sample = `{
  "username": "User",
  "oai_settings": {
    "chat_completion_source": "custom",
    "custom_url": "https://h.test/v1",
    "custom_model": "gpt-4o",
    "temp_openai": 0.7
  }
}`

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileHost_ConnectionState(t *testing.T) {
	h := host.NewFileHost(writeSettings(t, sample))

	state, err := h.ConnectionState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "custom", state.Source)
	assert.Equal(t, "https://h.test/v1", state.Endpoint)
	assert.Equal(t, "gpt-4o", state.Model)
}

func TestFileHost_ConnectionState_MakerSuite(t *testing.T) {
	h := host.NewFileHost(writeSettings(t, `{"oai_settings":{"chat_completion_source":"makersuite","reverse_proxy":"https://p.test","google_model":"gemini-pro","custom_url":"ignored"}}`))

	state, err := h.ConnectionState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "makersuite", state.Source)
	assert.Equal(t, "https://p.test", state.Endpoint)
	assert.Equal(t, "gemini-pro", state.Model)
}

func TestFileHost_ConnectionState_MissingFile(t *testing.T) {
	h := host.NewFileHost(filepath.Join(t.TempDir(), "settings.json"))

	state, err := h.ConnectionState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionState{}, state)
}

func TestFileHost_ConnectionState_InvalidJSON(t *testing.T) {
	h := host.NewFileHost(writeSettings(t, `{not json`))

	_, err := h.ConnectionState(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestFileHost_Connect_PreservesOtherFields(t *testing.T) {
	path := writeSettings(t, sample)
	h := host.NewFileHost(path)

	err := h.Connect(context.Background(), domain.ConnectRequest{Source: domain.SourceCustom, Endpoint: "https://other.test/v1"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://other.test/v1", gjson.GetBytes(data, "oai_settings.custom_url").String())
	assert.Equal(t, "User", gjson.GetBytes(data, "username").String())
	assert.Equal(t, 0.7, gjson.GetBytes(data, "oai_settings.temp_openai").Float())
}

func TestFileHost_Connect_MakerSuite(t *testing.T) {
	path := writeSettings(t, sample)
	h := host.NewFileHost(path)

	err := h.Connect(context.Background(), domain.ConnectRequest{
		Source:        domain.SourceMakerSuite,
		Endpoint:      "https://proxy.test",
		ProxyPassword: "pw",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "makersuite", gjson.GetBytes(data, "oai_settings.chat_completion_source").String())
	assert.Equal(t, "https://proxy.test", gjson.GetBytes(data, "oai_settings.reverse_proxy").String())
	assert.Equal(t, "pw", gjson.GetBytes(data, "oai_settings.proxy_password").String())
	assert.Equal(t, "https://h.test/v1", gjson.GetBytes(data, "oai_settings.custom_url").String())
}

func TestFileHost_Connect_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	h := host.NewFileHost(path)

	require.NoError(t, h.Connect(context.Background(), domain.ConnectRequest{Source: domain.SourceCustom, Endpoint: "https://h.test"}))

	state, err := h.ConnectionState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://h.test", state.Endpoint)
}

func TestFileHost_SelectModel(t *testing.T) {
	path := writeSettings(t, sample)
	h := host.NewFileHost(path)

	require.NoError(t, h.SelectModel(context.Background(), domain.SourceCustom, "gpt-4.1"))
	require.NoError(t, h.SelectModel(context.Background(), domain.SourceMakerSuite, "gemini-2.0-flash"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", gjson.GetBytes(data, "oai_settings.custom_model").String())
	assert.Equal(t, "gpt-4.1", gjson.GetBytes(data, "oai_settings.custom_model_id").String())
	assert.Equal(t, "gemini-2.0-flash", gjson.GetBytes(data, "oai_settings.google_model").String())
}

type stubChecker struct {
	models []string
	err    error
	got    source.ListRequest
}

func (s *stubChecker) ListModels(_ context.Context, req source.ListRequest) ([]string, error) {
	s.got = req
	return s.models, s.err
}

func TestFileHost_ModelsReady(t *testing.T) {
	ctx := context.Background()

	ready, err := host.NewFileHost(writeSettings(t, sample)).ModelsReady(ctx, domain.SourceCustom)
	require.NoError(t, err)
	assert.True(t, ready, "no checker means nothing to wait for")

	checker := &stubChecker{}
	h := host.NewFileHost(writeSettings(t, sample), host.WithChecker(checker))
	ready, err = h.ModelsReady(ctx, domain.SourceCustom)
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, "https://h.test/v1", checker.got.Endpoint)

	checker.models = []string{"gpt-4o"}
	ready, err = h.ModelsReady(ctx, domain.SourceCustom)
	require.NoError(t, err)
	assert.True(t, ready)

	checker.err = errors.New("down")
	_, err = h.ModelsReady(ctx, domain.SourceCustom)
	assert.Error(t, err)
}

func TestFileHost_Watch(t *testing.T) {
	path := writeSettings(t, sample)
	h := host.NewFileHost(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := h.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, h.Connect(ctx, domain.ConnectRequest{Source: domain.SourceCustom, Endpoint: "https://x.test"}))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case _, ok := <-changes:
		for ok {
			_, ok = <-changes
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
