package tavern

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"acm/internal/domain"
	"acm/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newHost(t *testing.T, status func(w http.ResponseWriter, body []byte)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/csrf-token":
			_, _ = w.Write([]byte(`{"token":"tok-1"}`))
		case statusPath:
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "tok-1", r.Header.Get("X-CSRF-Token"))
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			status(w, body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_ListModels_Custom(t *testing.T) {
	server := newHost(t, func(w http.ResponseWriter, body []byte) {
		assert.Equal(t, "custom", gjson.GetBytes(body, "chat_completion_source").String())
		assert.Equal(t, "https://h.test/v1", gjson.GetBytes(body, "custom_url").String())
		assert.Equal(t, "", gjson.GetBytes(body, "reverse_proxy").String())
		_, _ = w.Write([]byte(`{"data":[{"id":"zeta"},{"id":"alpha"}]}`))
	})

	c := New(server.Client(), server.URL+"/")
	models, err := c.ListModels(context.Background(), source.ListRequest{
		Source:   domain.SourceCustom,
		Endpoint: " https://h.test/v1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, models)
}

func TestClient_ListModels_MakerSuite(t *testing.T) {
	server := newHost(t, func(w http.ResponseWriter, body []byte) {
		assert.Equal(t, "makersuite", gjson.GetBytes(body, "chat_completion_source").String())
		assert.Equal(t, "https://proxy.test", gjson.GetBytes(body, "reverse_proxy").String())
		assert.Equal(t, "pw", gjson.GetBytes(body, "proxy_password").String())
		assert.False(t, gjson.GetBytes(body, "custom_url").Exists())
		_, _ = w.Write([]byte(`{"data":[{"id":"gemini-pro"}]}`))
	})

	c := New(server.Client(), server.URL)
	models, err := c.ListModels(context.Background(), source.ListRequest{
		Source:        domain.SourceMakerSuite,
		Endpoint:      "https://proxy.test",
		ProxyPassword: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-pro"}, models)
}

func TestClient_ListModels_ErrorBody(t *testing.T) {
	server := newHost(t, func(w http.ResponseWriter, _ []byte) {
		_, _ = w.Write([]byte(`{"error":true}`))
	})

	_, err := New(server.Client(), server.URL).ListModels(context.Background(), source.ListRequest{Source: domain.SourceCustom})
	assert.ErrorIs(t, err, domain.ErrModelList)
}

func TestClient_ListModels_HTTPError(t *testing.T) {
	server := newHost(t, func(w http.ResponseWriter, _ []byte) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := New(server.Client(), server.URL).ListModels(context.Background(), source.ListRequest{Source: domain.SourceCustom})
	assert.ErrorIs(t, err, domain.ErrModelList)
}

func TestClient_ListModels_NoCSRF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != statusPath {
			http.NotFound(w, r)
			return
		}
		assert.Empty(t, r.Header.Get("X-CSRF-Token"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	models, err := New(server.Client(), server.URL).ListModels(context.Background(), source.ListRequest{Source: domain.SourceCustom})
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestClient_ListModels_Forbidden(t *testing.T) {
	server := newHost(t, func(w http.ResponseWriter, _ []byte) {
		w.WriteHeader(http.StatusForbidden)
	})

	c := New(server.Client(), server.URL)
	_, err := c.ListModels(context.Background(), source.ListRequest{Source: domain.SourceCustom})
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
	assert.Empty(t, c.token)
}

func TestNew_AttachesJarToCopy(t *testing.T) {
	shared := &http.Client{Timeout: 5 * time.Second}

	c := New(shared, "http://127.0.0.1:8000")
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.NotNil(t, c.httpClient.Jar)
	assert.Nil(t, shared.Jar, "caller's client is left alone")

	c = New(nil, "http://127.0.0.1:8000")
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)
	assert.NotNil(t, c.httpClient.Jar)
}

func TestStatusPayload(t *testing.T) {
	payload, err := statusPayload(source.ListRequest{Source: domain.SourceCustom, Endpoint: " https://h.test/v1 "})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chat_completion_source":"custom","reverse_proxy":"","proxy_password":"","custom_url":"https://h.test/v1"}`, string(payload))

	payload, err = statusPayload(source.ListRequest{Source: domain.SourceMakerSuite, Endpoint: "https://proxy.test", ProxyPassword: "pw"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"chat_completion_source":"makersuite","reverse_proxy":"https://proxy.test","proxy_password":"pw"}`, string(payload))
}
